package mapper

import (
	"strconv"
	"strings"
	"unicode"

	"discord-archiver/models"

	"github.com/bwmarrin/discordgo"
)

const (
	zeroWidthJoiner   = '\u200d'
	variationSelector = '\ufe0f'
)

// EmojiMapper maps custom and Unicode emoji.
type EmojiMapper struct{}

// UnicodeID derives the stable pseudo-ID of a Unicode emoji: the decimal sum of its code points.
func UnicodeID(name string) string {
	var sum int64
	for _, r := range name {
		sum += int64(r)
	}
	return strconv.FormatInt(sum, 10)
}

// ID returns the archive ID of e.
func (EmojiMapper) ID(e *discordgo.Emoji) string {
	if e.ID != "" {
		return e.ID
	}
	return UnicodeID(e.Name)
}

// Map converts e into an emoji row. Custom emoji keep their ID and CDN URL.
func (m EmojiMapper) Map(e *discordgo.Emoji) *models.Emoji {
	if e.ID == "" {
		return &models.Emoji{ID: UnicodeID(e.Name), Name: e.Name}
	}

	url := discordgo.EndpointEmoji(e.ID)
	if e.Animated {
		url = discordgo.EndpointEmojiAnimated(e.ID)
	}
	return &models.Emoji{
		ID:       e.ID,
		Name:     e.Name,
		URL:      &url,
		Animated: e.Animated,
	}
}

// Parse returns every emoji used in content, in order of appearance and with repeats.
func (EmojiMapper) Parse(content string) []*discordgo.Emoji {
	var emojis []*discordgo.Emoji

	for _, markup := range discordgo.EmojiRegex.FindAllString(content, -1) {
		// <a:name:id> or <:name:id>
		parts := strings.Split(strings.Trim(markup, "<>"), ":")
		if len(parts) != 3 {
			continue
		}
		emojis = append(emojis, &discordgo.Emoji{
			ID:       parts[2],
			Name:     parts[1],
			Animated: parts[0] == "a",
		})
	}

	runes := []rune(discordgo.EmojiRegex.ReplaceAllString(content, ""))
	for i := 0; i < len(runes); i++ {
		if !isEmojiRune(runes[i]) {
			continue
		}

		end := i + 1
	sequence:
		for end < len(runes) {
			switch {
			case runes[end] == variationSelector || isSkinTone(runes[end]):
				end++
			case runes[end] == zeroWidthJoiner && end+1 < len(runes) && isEmojiRune(runes[end+1]):
				end += 2
			default:
				break sequence
			}
		}
		emojis = append(emojis, &discordgo.Emoji{Name: string(runes[i:end])})
		i = end - 1
	}
	return emojis
}

func isEmojiRune(r rune) bool {
	return r > 0x2000 && unicode.Is(unicode.So, r)
}

func isSkinTone(r rune) bool {
	return r >= 0x1f3fb && r <= 0x1f3ff
}
