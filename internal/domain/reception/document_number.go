package reception

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/erp/reception/internal/domain/shared"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultPrefix is the document prefix used for receptions
const DefaultPrefix = "REC"

var (
	prefixPattern         = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,9}$`)
	documentNumberPattern = regexp.MustCompile(`^([A-Z][A-Z0-9]{0,9})-(\d{4})-(\d{5,})$`)
	upper                 = cases.Upper(language.Und)
)

// NormalizePrefix upper-cases and validates a document prefix
func NormalizePrefix(prefix string) (string, error) {
	p := upper.String(strings.TrimSpace(prefix))
	if !prefixPattern.MatchString(p) {
		return "", shared.NewValidationError(CodeInvalidPrefix,
			fmt.Sprintf("Document prefix %q must be 1-10 letters or digits starting with a letter", prefix))
	}
	return p, nil
}

// FormatDocumentNumber renders PREFIX-YYYY-NNNNN
func FormatDocumentNumber(prefix string, year int, value int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, value)
}

// DocumentNumber is the parsed form of a reception number
type DocumentNumber struct {
	Prefix string
	Year   int
	Value  int64
}

// String renders the number
func (n DocumentNumber) String() string {
	return FormatDocumentNumber(n.Prefix, n.Year, n.Value)
}

// ParseDocumentNumber parses PREFIX-YYYY-NNNNN
func ParseDocumentNumber(s string) (DocumentNumber, error) {
	m := documentNumberPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return DocumentNumber{}, shared.NewValidationError(CodeInvalidDocumentNumber,
			fmt.Sprintf("Document number %q does not match PREFIX-YYYY-NNNNN", s))
	}
	year, _ := strconv.Atoi(m[2])
	value, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return DocumentNumber{}, shared.NewValidationError(CodeInvalidDocumentNumber, err.Error())
	}
	return DocumentNumber{Prefix: m[1], Year: year, Value: value}, nil
}
