package csvsource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/services/auditcfg"
	"github.com/vg-tools/ledger-audit/pkg/services/canonical"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadUnits(t *testing.T) {
	path := writeFile(t, "units.csv", `unit_id,resident_name,unit_type,is_employee_unit
U1,Jordan Reyes,1BR,false
U2,*Dana Whitfield,2BR,
U3,Sam Okafor,Studio,true
`)

	units, err := ReadUnits(path)
	require.NoError(t, err)
	require.Len(t, units, 3)

	assert.Equal(t, "U1", units[0].UnitID)
	assert.False(t, units[0].IsEmployeeUnit)

	// The rent-roll marker prefix sets the flag even without a column
	// value.
	assert.Equal(t, "Dana Whitfield", units[1].ResidentName)
	assert.True(t, units[1].IsEmployeeUnit)

	assert.True(t, units[2].IsEmployeeUnit)
}

func TestReadUnits_InvalidBool(t *testing.T) {
	path := writeFile(t, "units.csv", `unit_id,resident_name,unit_type,is_employee_unit
U1,Jordan Reyes,1BR,maybe
`)
	_, err := ReadUnits(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestReadTransactions(t *testing.T) {
	normalizer := canonical.NewNormalizer(auditcfg.Default())
	path := writeFile(t, "txns.csv", `transaction_id,unit_id,description,amount,month,source
t1,U1,Base Rent,1200.00,2024-01,yardi
t2,U1,Rent Concession,-150.00,2024-01,yardi
t3,U1,Valet Trash,35.00,2024-01,yardi
t4,U1,Mystery Charge,12.00,2024-01,yardi
`)

	txns, err := ReadTransactions(path, normalizer)
	require.NoError(t, err)
	require.Len(t, txns, 4)

	assert.Equal(t, domain.CategoryRent, txns[0].Category)
	assert.True(t, txns[0].Amount.Equal(decimal.NewFromFloat(1200)))
	assert.Equal(t, domain.NewYearMonth(2024, time.January), txns[0].Month)

	// Concession wording wins over the rent keyword.
	assert.Equal(t, domain.CategoryConcession, txns[1].Category)

	assert.Equal(t, domain.CategoryFee, txns[2].Category)
	assert.Equal(t, "Valet Trash", txns[2].FeeName)

	// Unmapped labels fail closed.
	assert.Equal(t, domain.CategoryOther, txns[3].Category)
}

func TestReadTransactions_BadRows(t *testing.T) {
	normalizer := canonical.NewNormalizer(auditcfg.Default())

	t.Run("invalid amount", func(t *testing.T) {
		path := writeFile(t, "txns.csv", `transaction_id,unit_id,description,amount,month,source
t1,U1,Base Rent,twelve,2024-01,yardi
`)
		_, err := ReadTransactions(path, normalizer)
		assert.Error(t, err)
	})

	t.Run("invalid month", func(t *testing.T) {
		path := writeFile(t, "txns.csv", `transaction_id,unit_id,description,amount,month,source
t1,U1,Base Rent,1200,January 2024,yardi
`)
		_, err := ReadTransactions(path, normalizer)
		assert.Error(t, err)
	})

	t.Run("short row", func(t *testing.T) {
		path := writeFile(t, "txns.csv", `transaction_id,unit_id,description
t1,U1,Base Rent
`)
		_, err := ReadTransactions(path, normalizer)
		assert.Error(t, err)
	})
}

func TestReadLeases(t *testing.T) {
	path := writeFile(t, "leases.csv", `unit_id,lease_start,lease_end,contract_rent,concession_amount
U1,2024-01-15,2024-12-14,1200.00,150.00
U2,2023-06-01,2024-05-31,950.00,
`)

	leases, err := ReadLeases(path)
	require.NoError(t, err)
	require.Len(t, leases, 2)

	assert.Equal(t, "U1", leases[0].UnitID)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), leases[0].LeaseStart)
	assert.True(t, leases[0].ContractRent.Equal(decimal.NewFromFloat(1200)))
	assert.True(t, leases[0].ConcessionAmount.Equal(decimal.NewFromFloat(150)))

	// An empty concession column reads as zero.
	assert.True(t, leases[1].ConcessionAmount.IsZero())
}

func TestReadLeases_InvalidDate(t *testing.T) {
	path := writeFile(t, "leases.csv", `unit_id,lease_start,lease_end,contract_rent,concession_amount
U1,15/01/2024,2024-12-14,1200.00,
`)
	_, err := ReadLeases(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lease_start")
}

func TestReadRows_MissingFile(t *testing.T) {
	_, err := ReadUnits(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
