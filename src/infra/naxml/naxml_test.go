package naxml

import (
	"context"
	"testing"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deptDoc = `<?xml version="1.0" encoding="UTF-8"?>
<NAXML-MaintenanceRequest>
  <DepartmentMaintenance>
    <DEPDetail><DepartmentID>1</DepartmentID></DEPDetail>
    <DEPDetail><DepartmentID>2</DepartmentID></DEPDetail>
  </DepartmentMaintenance>
</NAXML-MaintenanceRequest>`

const journalDoc = `<?xml version="1.0"?>
<NAXML-POSJournal>
  <JournalReport>
    <SaleEvent><TransactionID>1</TransactionID></SaleEvent>
    <SaleEvent><TransactionID>2</TransactionID></SaleEvent>
    <SaleEvent><TransactionID>3</TransactionID></SaleEvent>
  </JournalReport>
</NAXML-POSJournal>`

func TestValidator_DetectsDocumentType(t *testing.T) {
	v := NewValidator()
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		want    exchange.DocumentType
	}{
		{"department", deptDoc, exchange.DocumentDepartment},
		{"journal", journalDoc, exchange.DocumentTransaction},
		{"tender", `<Root><TenderMaintenance><TenderDetail/></TenderMaintenance></Root>`, exchange.DocumentTender},
		{"tax rate root", `<TaxRateMaintenance><TaxRateDetail/></TaxRateMaintenance>`, exchange.DocumentTaxRate},
		{"unknown root", `<Inventory><Item/></Inventory>`, exchange.DocumentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Validate(ctx, []byte(tt.content))
			require.NoError(t, err)
			assert.True(t, res.Valid, res.Errors)
			assert.Equal(t, tt.want, res.DocumentType)
		})
	}
}

func TestValidator_RejectsBadContent(t *testing.T) {
	v := NewValidator()
	ctx := context.Background()

	for _, content := range []string{"", "   \n", "not xml at all", "<Open><Unclosed></Open>"} {
		res, err := v.Validate(ctx, []byte(content))
		require.NoError(t, err)
		assert.False(t, res.Valid, "content %q", content)
		assert.NotEmpty(t, res.Errors)
	}
}

func TestValidator_Latin1Prolog(t *testing.T) {
	v := NewValidator()
	content := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><DepartmentMaintenance><DEPDetail><Name>Caf`), 0xE9)
	content = append(content, []byte(`</Name></DEPDetail></DepartmentMaintenance>`)...)

	res, err := v.Validate(context.Background(), content)
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)
	assert.Equal(t, exchange.DocumentDepartment, res.DocumentType)
}

func TestValidator_UTF8BOM(t *testing.T) {
	v := NewValidator()
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte(journalDoc)...)

	res, err := v.Validate(context.Background(), content)
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)
}

func TestRecordCounter(t *testing.T) {
	imp := NewRecordCounter(nil)
	ctx := context.Background()
	sc := exchange.StoreContext{StoreID: "S1"}

	res, err := imp.ImportDepartments(ctx, sc, []byte(deptDoc))
	require.NoError(t, err)
	assert.Equal(t, 2, res.RecordCount)

	res, err = imp.ImportTransactions(ctx, sc, []byte(journalDoc))
	require.NoError(t, err)
	assert.Equal(t, 3, res.RecordCount)

	res, err = imp.ImportTenderTypes(ctx, sc, []byte(deptDoc))
	require.NoError(t, err)
	assert.Equal(t, 0, res.RecordCount)

	_, err = imp.ImportTaxRates(ctx, sc, []byte("<broken>"))
	assert.Error(t, err)
}
