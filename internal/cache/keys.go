package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/gitsquash/internal/model"
	"github.com/maxbolgarin/lang"
)

// Keys are a tagged, "|"-joined component string run through SHA-256 and
// truncated to 16 hex characters. The components are chosen so that the key
// changes whenever any message-affecting input changes: reordering or adding
// commits, a different diff, different limits or a different model.
const keyLength = 16

func summaryKey(date string, commitHashes []string, diffHash, configHash string) string {
	parts := []string{
		"summary",
		date,
		strings.Join(commitHashes[:min(3, len(commitHashes))], "-"),
		fmt.Sprintf("n%d", len(commitHashes)),
		diffHash[:8],
		configHash[:8],
	}
	return hashKey(parts)
}

func planKey(startDate, endDate string, commitCount int, firstHash, lastHash, configHash string) string {
	parts := []string{
		"plan",
		lang.Check(startDate, "begin"),
		lang.Check(endDate, "head"),
		fmt.Sprintf("n%d", commitCount),
		firstHash[:min(8, len(firstHash))],
		lastHash[:min(8, len(lastHash))],
		configHash[:8],
	}
	return hashKey(parts)
}

func hashKey(parts []string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:keyLength]
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// hashConfig fingerprints only the message-affecting configuration fields.
// MessageLimits marshals with a fixed field order, so the digest is
// deterministic for equal values.
func hashConfig(limits model.MessageLimits) string {
	raw, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(limits)
	if err != nil {
		raw = []byte(fmt.Sprintf("%+v", limits))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
