// Package csvsource is the CSV ingestion collaborator. It reads unit,
// transaction and lease files into canonical records, normalizing
// categories through the configured mapping table on the way in.
package csvsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/services/canonical"
)

const dateLayout = "2006-01-02"

// ReadUnits parses a unit file with header
// unit_id,resident_name,unit_type,is_employee_unit.
func ReadUnits(path string) ([]domain.Unit, error) {
	rows, err := readRows(path, 4)
	if err != nil {
		return nil, err
	}

	units := make([]domain.Unit, 0, len(rows))
	for i, row := range rows {
		employee, err := parseBool(row[3])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		units = append(units, canonical.NormalizeUnit(domain.Unit{
			UnitID:         strings.TrimSpace(row[0]),
			ResidentName:   strings.TrimSpace(row[1]),
			UnitType:       strings.TrimSpace(row[2]),
			IsEmployeeUnit: employee,
		}))
	}
	return units, nil
}

// ReadTransactions parses a transaction file with header
// transaction_id,unit_id,description,amount,month,source and normalizes
// each row's category and fee name.
func ReadTransactions(path string, normalizer *canonical.Normalizer) ([]domain.Transaction, error) {
	rows, err := readRows(path, 6)
	if err != nil {
		return nil, err
	}

	txns := make([]domain.Transaction, 0, len(rows))
	for i, row := range rows {
		amount, err := decimal.NewFromString(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid amount %q", path, i+2, row[3])
		}
		month, err := domain.ParseYearMonth(strings.TrimSpace(row[4]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}

		txns = append(txns, normalizer.NormalizeTransaction(domain.Transaction{
			TransactionID: strings.TrimSpace(row[0]),
			UnitID:        strings.TrimSpace(row[1]),
			Description:   strings.TrimSpace(row[2]),
			Amount:        amount,
			Month:         month,
			Source:        strings.TrimSpace(row[5]),
		}))
	}
	return txns, nil
}

// ReadLeases parses a lease file with header
// unit_id,lease_start,lease_end,contract_rent,concession_amount.
func ReadLeases(path string) ([]domain.LeaseTerm, error) {
	rows, err := readRows(path, 5)
	if err != nil {
		return nil, err
	}

	leases := make([]domain.LeaseTerm, 0, len(rows))
	for i, row := range rows {
		start, err := time.Parse(dateLayout, strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid lease_start %q", path, i+2, row[1])
		}
		end, err := time.Parse(dateLayout, strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid lease_end %q", path, i+2, row[2])
		}
		rent, err := decimal.NewFromString(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid contract_rent %q", path, i+2, row[3])
		}
		concession := decimal.Zero
		if v := strings.TrimSpace(row[4]); v != "" {
			if concession, err = decimal.NewFromString(v); err != nil {
				return nil, fmt.Errorf("%s row %d: invalid concession_amount %q", path, i+2, row[4])
			}
		}

		leases = append(leases, domain.LeaseTerm{
			UnitID:           strings.TrimSpace(row[0]),
			LeaseStart:       start,
			LeaseEnd:         end,
			ContractRent:     rent,
			ConcessionAmount: concession,
		})
	}
	return leases, nil
}

// readRows reads all data rows, skipping the header, enforcing a minimum
// column count.
func readRows(path string, minCols int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	var rows [][]string
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		line++
		if line == 1 {
			continue // header
		}
		if len(row) < minCols {
			return nil, fmt.Errorf("%s row %d: expected %d columns, got %d", path, line, minCols, len(row))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseBool(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return v, nil
}
