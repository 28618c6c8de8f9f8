package scanning

import (
	"errors"
	"strings"
)

// ErrExtractionIncomplete reports a model reply that did not contain the
// required menu and amount labels. Callers surface this as a distinct
// condition instead of storing a blank record.
var ErrExtractionIncomplete = errors.New("extraction incomplete: reply missing 메뉴 or 금액")

// noneSentinel is what the prompt tells the model to write for absent fields
const noneSentinel = "없음"

const (
	labelItem   = "메뉴"
	labelAmount = "금액"
	labelDate   = "날짜"
	labelTime   = "시간"
)

// parseFields scans each line of a model reply for a recognized label prefix
// and takes the text after the first colon. The 없음 sentinel maps to empty.
// Lines without a recognized label are ignored, so a chatty preamble does
// not break the parse.
func parseFields(reply string) *ReceiptFields {
	fields := &ReceiptFields{}

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)

		label, value, ok := splitLabeled(line)
		if !ok {
			continue
		}

		switch label {
		case labelItem:
			fields.Item = value
		case labelAmount:
			fields.Amount = value
		case labelDate:
			fields.Date = value
		case labelTime:
			fields.Time = value
		}
	}

	return fields
}

// splitLabeled splits "label: value" at the first colon, so colons inside
// the value (times, mostly) survive
func splitLabeled(line string) (label, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}

	label = strings.TrimSpace(line[:idx])
	value = strings.TrimSpace(line[idx+1:])
	if value == noneSentinel {
		value = ""
	}
	return label, value, true
}

// validate requires the two fields every receipt has. Date and time stay
// optional; plenty of receipts omit one or both.
func (f *ReceiptFields) validate() error {
	if f.Item == "" || f.Amount == "" {
		return ErrExtractionIncomplete
	}
	return nil
}
