package handlers

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Validation limits for query parameters.
const (
	maxVocabIDLen = 200
	maxURILen     = 2048
)

// paramError is a malformed request parameter. Its message is shown to
// the client.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func invalid(format string, args ...any) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

// objectQuery holds the parameters of /object.
type objectQuery struct {
	VocabID string
	URI     string
}

// validateObjectQuery checks the /object parameters and returns the first
// problem found. Both parameters are optional; lang only has to be a
// well-formed tag.
func validateObjectQuery(q url.Values) (objectQuery, error) {
	oq := objectQuery{
		VocabID: strings.TrimSpace(q.Get("vocab_id")),
		URI:     strings.TrimSpace(q.Get("uri")),
	}
	if oq.VocabID == "" && oq.URI == "" {
		return oq, invalid("Either vocab_id or uri is required.")
	}
	if err := validateVocabID(oq.VocabID); err != nil {
		return oq, err
	}
	if oq.URI != "" {
		if utf8.RuneCountInString(oq.URI) > maxURILen {
			return oq, invalid("URI is too long (max 2,048 characters).")
		}
		u, err := url.Parse(oq.URI)
		if err != nil || !u.IsAbs() {
			return oq, invalid("URI must be absolute.")
		}
	}
	if l := q.Get("lang"); l != "" {
		if _, err := language.Parse(l); err != nil {
			return oq, invalid("Language %q is not a valid language tag.", l)
		}
	}
	return oq, nil
}

// validateVocabID rejects ids no source can produce. An empty id is valid.
func validateVocabID(id string) error {
	if utf8.RuneCountInString(id) > maxVocabIDLen {
		return invalid("Vocabulary id is too long (max 200 characters).")
	}
	if strings.IndexFunc(id, func(r rune) bool { return unicode.IsControl(r) || r == '/' }) >= 0 {
		return invalid("Vocabulary id contains invalid characters.")
	}
	return nil
}
