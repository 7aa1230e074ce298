package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// voteCustomIDPrefix identifies vote button interactions. The version segment
// lets old messages keep working if the format ever changes.
const (
	voteCustomIDPrefix  = "pred_vote"
	voteCustomIDVersion = 1
)

// buildVoteCustomID encodes a vote button's target as
// "pred_vote:<version>:<predictionID>:<optionID>"
func buildVoteCustomID(predictionID, optionID int64) string {
	return fmt.Sprintf("%s:%d:%d:%d", voteCustomIDPrefix, voteCustomIDVersion, predictionID, optionID)
}

// parseVoteCustomID decodes a vote button custom ID. Returns an error for
// anything that is not a well-formed vote custom ID.
func parseVoteCustomID(customID string) (predictionID, optionID int64, err error) {
	parts := strings.Split(customID, ":")
	if len(parts) != 4 || parts[0] != voteCustomIDPrefix {
		return 0, 0, fmt.Errorf("not a vote custom ID: %s", customID)
	}

	version, err := strconv.Atoi(parts[1])
	if err != nil || version != voteCustomIDVersion {
		return 0, 0, fmt.Errorf("unsupported vote custom ID version: %s", parts[1])
	}

	predictionID, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid prediction ID in custom ID %s: %w", customID, err)
	}

	optionID, err = strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid option ID in custom ID %s: %w", customID, err)
	}

	return predictionID, optionID, nil
}

// isVoteCustomID reports whether a custom ID belongs to a vote button
func isVoteCustomID(customID string) bool {
	return strings.HasPrefix(customID, voteCustomIDPrefix+":")
}
