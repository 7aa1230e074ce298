package bot

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// TeamEmojis maps normalized team names to emoji strings. Option labels that
// name a known team get the emoji prepended on the prediction message.
type TeamEmojis struct {
	emojis map[string]string
}

// ParseTeamEmojis builds a TeamEmojis lookup from a JSON object of
// team name -> emoji. An empty input yields an empty lookup.
func ParseTeamEmojis(rawJSON string) (*TeamEmojis, error) {
	te := &TeamEmojis{emojis: make(map[string]string)}

	if strings.TrimSpace(rawJSON) == "" {
		return te, nil
	}

	var raw map[string]string
	if err := json.Unmarshal([]byte(rawJSON), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse team emojis JSON: %w", err)
	}

	for name, emoji := range raw {
		key := normalizeTeamName(name)
		if key == "" || emoji == "" {
			continue
		}
		te.emojis[key] = emoji
	}

	return te, nil
}

// Lookup returns the emoji for a team name, matching the full label first
// and then individual words so "G2 Esports" finds the "g2" entry
func (te *TeamEmojis) Lookup(label string) (string, bool) {
	if len(te.emojis) == 0 {
		return "", false
	}

	if emoji, ok := te.emojis[normalizeTeamName(label)]; ok {
		return emoji, true
	}

	for _, word := range strings.Fields(label) {
		if emoji, ok := te.emojis[normalizeTeamName(word)]; ok {
			return emoji, true
		}
	}

	return "", false
}

// Decorate prepends the matching team emoji to a label, or returns the label
// unchanged when no team matches
func (te *TeamEmojis) Decorate(label string) string {
	if emoji, ok := te.Lookup(label); ok {
		return emoji + " " + label
	}
	return label
}

// normalizeTeamName lowercases and strips everything but letters and digits
// so "G2 Esports", "g2-esports" and "G2 ESPORTS" all collide
func normalizeTeamName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
