package exchange

import (
	"bytes"
	"path/filepath"
	"strings"
)

// sniffLimit bounds how much content Classify looks at.
const sniffLimit = 4096

var contentMarkers = []struct {
	marker []byte
	doc    DocumentType
}{
	{[]byte("DepartmentMaintenance"), DocumentDepartment},
	{[]byte("TenderMaintenance"), DocumentTender},
	{[]byte("TaxRateMaintenance"), DocumentTaxRate},
	{[]byte("POSJournal"), DocumentTransaction},
}

var nameMarkers = []struct {
	prefixes []string
	doc      DocumentType
}{
	{[]string{"dept", "dep_", "department"}, DocumentDepartment},
	{[]string{"tender", "tnd", "mop"}, DocumentTender},
	{[]string{"tax"}, DocumentTaxRate},
	{[]string{"tlog", "pjr", "journal", "trans"}, DocumentTransaction},
}

// Classify makes a best-effort guess of the document type from its content and name.
// It never fails; unrecognised documents are treated as transaction documents.
func Classify(fileName string, content []byte) (DocumentType, DataCategory) {
	head := content
	if len(head) > sniffLimit {
		head = head[:sniffLimit]
	}
	for _, m := range contentMarkers {
		if bytes.Contains(head, m.marker) {
			return m.doc, m.doc.Category()
		}
	}

	base := strings.ToLower(filepath.Base(fileName))
	for _, m := range nameMarkers {
		for _, p := range m.prefixes {
			if strings.HasPrefix(base, p) {
				return m.doc, m.doc.Category()
			}
		}
	}
	return DocumentTransaction, CategoryTransaction
}

// ParseDocumentType maps a user supplied hint to a DocumentType.
func ParseDocumentType(hint string) (DocumentType, bool) {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "posjournal", "transaction", "transactions", "tlog":
		return DocumentTransaction, true
	case "departmentmaintenance", "department", "departments":
		return DocumentDepartment, true
	case "tendermaintenance", "tender", "tenders":
		return DocumentTender, true
	case "taxratemaintenance", "tax", "taxrate", "taxrates":
		return DocumentTaxRate, true
	}
	return "", false
}
