package allocator

import (
	"errors"
	"regexp"
	"strings"

	"github.com/noah-isme/pe-space-master/internal/models"
)

// ErrInvalidClassFormat is returned when a class code has no leading year digits
// followed by a class token.
var ErrInvalidClassFormat = errors.New("invalid class format")

var classCodePattern = regexp.MustCompile(`(?i)^(?:Y|Year)?\s*(\d+)\s*([A-Za-z0-9]+)`)

// ParseClassCode splits codes such as "7Hope", "Y10a" or "10a PE1" into year,
// class token and upper-cased class letter.
func ParseClassCode(raw string) (models.ClassCode, error) {
	code := strings.TrimSpace(raw)
	match := classCodePattern.FindStringSubmatch(code)
	if match == nil {
		return models.ClassCode{Raw: code}, ErrInvalidClassFormat
	}
	token := strings.ToUpper(match[2])
	return models.ClassCode{
		Raw:    code,
		Year:   match[1],
		Token:  token,
		Letter: token[:1],
	}, nil
}
