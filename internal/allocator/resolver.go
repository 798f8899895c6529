package allocator

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/pe-space-master/internal/models"
)

const wildcardClass = "ALL"

// SportResolution is the Rule Resolver's answer for one class on one date.
type SportResolution struct {
	Class   models.ClassCode
	Sport   string
	Match   models.MatchKind
	Failure models.FailureKind
	Reason  string
	Trace   []string
}

// Found reports whether a sport was resolved.
func (r SportResolution) Found() bool {
	return r.Match != models.MatchNone
}

// ResolveSport finds the curriculum sport for a class on a date.
//
// Rules are scanned in table order. A rule must match the class year, the
// weekday (or be a day wildcard) and contain the date in its window. Among
// the survivors an exact class token beats a class letter, which beats the
// ALL wildcard; within a tier the first rule wins. When debug is set, rules
// skipped for their dates are described in Trace.
func ResolveSport(code string, date time.Time, rules []models.CurriculumRule, debug bool) SportResolution {
	class, err := ParseClassCode(code)
	if err != nil {
		return SportResolution{
			Class:   class,
			Failure: models.FailureInvalidClassFormat,
			Reason:  "Invalid Class Format",
		}
	}

	day := date.Weekday().String()
	on := DateOnly(date)
	res := SportResolution{Class: class}

scan:
	for i, rule := range rules {
		if strings.TrimSpace(rule.Year) != class.Year {
			continue
		}
		if !isWildcardDay(rule.Day) && TitleCase(rule.Day) != day {
			continue
		}
		if !rule.HasValidWindow() {
			if debug {
				res.Trace = append(res.Trace, fmt.Sprintf("%s: rule %d skipped, malformed date window %q - %q",
					models.FailureMalformedRuleDate, ruleRow(rule, i), rule.StartRaw, rule.EndRaw))
			}
			continue
		}
		if on.Before(DateOnly(rule.Start)) || on.After(DateOnly(rule.End)) {
			if debug {
				res.Trace = append(res.Trace, fmt.Sprintf("rule %d skipped, %s outside %s - %s",
					ruleRow(rule, i), on.Format(time.DateOnly), rule.Start.Format(time.DateOnly), rule.End.Format(time.DateOnly)))
			}
			continue
		}
		sport := strings.TrimSpace(rule.Sport)
		if sport == "" {
			if debug {
				res.Trace = append(res.Trace, fmt.Sprintf("rule %d skipped, no sport", ruleRow(rule, i)))
			}
			continue
		}

		switch strings.ToUpper(strings.TrimSpace(rule.Class)) {
		case class.Token:
			res.Sport, res.Match = sport, models.MatchExact
			break scan
		case class.Letter:
			if res.Match < models.MatchLetter {
				res.Sport, res.Match = sport, models.MatchLetter
			}
		case wildcardClass:
			if res.Match == models.MatchNone {
				res.Sport, res.Match = sport, models.MatchAll
			}
		}
	}

	if !res.Found() {
		res.Failure = models.FailureNoRuleFound
		res.Reason = fmt.Sprintf("No rule found for Y%s", class.Year)
		return res
	}
	res.Reason = models.ReasonMatch
	return res
}

func ruleRow(rule models.CurriculumRule, index int) int {
	if rule.Row > 0 {
		return rule.Row
	}
	return index + 1
}
