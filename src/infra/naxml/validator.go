// Package naxml provides the default document validator and importers for NAXML-style exchange documents.
package naxml

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/contre95/posxchange/src/exchange"
)

// maxSniffDepth is the element depth searched for a maintenance section.
const maxSniffDepth = 3

var rootTypes = map[string]exchange.DocumentType{
	"naxml-posjournal": exchange.DocumentTransaction,
	"posjournal":       exchange.DocumentTransaction,
	"transactionlog":   exchange.DocumentTransaction,
}

var sectionTypes = map[string]exchange.DocumentType{
	"departmentmaintenance": exchange.DocumentDepartment,
	"tendermaintenance":     exchange.DocumentTender,
	"taxratemaintenance":    exchange.DocumentTaxRate,
}

// Validator checks that content is well-formed XML and detects its document type.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate never returns an error for bad content; problems are reported in the result.
func (v *Validator) Validate(ctx context.Context, content []byte) (exchange.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return exchange.ValidationResult{}, err
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return invalid("document is empty"), nil
	}
	content, err := normalizeBOM(content)
	if err != nil {
		return invalid(err.Error()), nil
	}

	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.CharsetReader = charsetReader

	var (
		root    string
		docType = exchange.DocumentUnknown
		depth   int
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return invalid(fmt.Sprintf("malformed XML: %v", err)), nil
		}
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			name := strings.ToLower(el.Name.Local)
			if root == "" {
				root = name
				if t, ok := rootTypes[name]; ok {
					docType = t
				}
			}
			if t, ok := sectionTypes[name]; ok && docType == exchange.DocumentUnknown && depth <= maxSniffDepth {
				docType = t
			}
		case xml.EndElement:
			depth--
		}
	}
	if root == "" {
		return invalid("document has no root element"), nil
	}
	return exchange.ValidationResult{Valid: true, DocumentType: docType}, nil
}

func invalid(msg string) exchange.ValidationResult {
	return exchange.ValidationResult{Valid: false, Errors: []string{msg}}
}
