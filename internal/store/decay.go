package store

import (
	"math"
	"strconv"
)

// DefaultHalfLifeDays is the V2 half-life parameter H, in days.
const DefaultHalfLifeDays = 30.0

// DecayV1 computes score = base_quality * 0.95^days_since * max(log(access_count+1), 0.1).
func DecayV1(baseQuality float64, daysSince float64, accessCount int) float64 {
	freq := math.Log(float64(accessCount) + 1)
	if freq < 0.1 {
		freq = 0.1
	}
	return baseQuality * math.Pow(0.95, daysSince) * freq
}

// DecayV2 computes a half-life exponential decay with an access-frequency boost:
//
//	score = base * importance * exp(-ln(2)/H * days_since) * (1 + 0.1*log(1+access_count))
//
// halfLifeDays <= 0 defaults to DefaultHalfLifeDays.
func DecayV2(base, importance, daysSince float64, accessCount int, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		halfLifeDays = DefaultHalfLifeDays
	}
	decay := math.Exp(-math.Ln2 / halfLifeDays * daysSince)
	boost := 1 + 0.1*math.Log(1+float64(accessCount))
	return base * importance * decay * boost
}

// IsStale reports whether a decay score has fallen below the threshold at
// which a chunk is considered stale (but not archived).
func IsStale(decayScore float64) bool {
	return decayScore != ArchiveSentinel && decayScore < StaleThreshold
}

// IsArchived reports whether a chunk has been explicitly archived.
func IsArchived(decayScore float64) bool {
	return decayScore == ArchiveSentinel
}

// DaysSince returns the age in days of a chunk, measured from the more
// recent of its last-accessed and creation timestamps, clamped at zero.
func DaysSince(lastAccessed, createdAt, now int64) float64 {
	reference := createdAt
	if lastAccessed > reference {
		reference = lastAccessed
	}
	secs := now - reference
	if secs < 0 {
		secs = 0
	}
	return float64(secs) / 86400.0
}

// defaultBaseQuality and defaultImportance are used when a chunk's metadata
// does not carry explicit "base_quality"/"importance" values.
const (
	defaultBaseQuality = 1.0
	defaultImportance  = 1.0
)

// metadataFloat reads a float64-valued metadata key, falling back to def if
// absent or unparsable. Chunk metadata is stored as string values, so the
// convention is a base-10 float literal.
func metadataFloat(metadata map[string]string, key string, def float64) float64 {
	raw, ok := metadata[key]
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// Score computes a chunk's current decay score using the given formula
// version ("v1" or "v2", defaulting to v1) and half-life (v2 only).
func Score(c *Chunk, now int64, version string, halfLifeDays float64) float64 {
	days := DaysSince(c.LastAccessed, c.Timestamp, now)
	baseQuality := metadataFloat(c.Metadata, "base_quality", defaultBaseQuality)

	if version == "v2" {
		importance := metadataFloat(c.Metadata, "importance", defaultImportance)
		return DecayV2(baseQuality, importance, days, c.AccessCount, halfLifeDays)
	}
	return DecayV1(baseQuality, days, c.AccessCount)
}
