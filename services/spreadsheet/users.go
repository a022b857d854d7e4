// Package xlsxsvc reads and writes user lists as .xlsx workbooks.
package xlsxsvc

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/user"
)

const usersSheet = "Users"

// Headers of a users workbook, in column order.
var Headers = []string{"ID", "Username", "Password", "Name", "Role", "TeamID", "Email"}

// ID and Email may be left out of an import.
var requiredHeaders = []string{"Username", "Password", "Name", "Role", "TeamID"}

// ReadUsers reads users from the first sheet of an .xlsx workbook.
// Headers are matched ignoring case and may come in any order; blank rows are skipped.
// Rows are returned as read with their row number, see user.Service.Import for validation.
func ReadUsers(r io.Reader) ([]user.NewUser, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewValidationError(err, core.FieldError{Field: "file", Error: "not a valid .xlsx file"})
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "the workbook has no sheets"})
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}
	if len(rows) == 0 {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "file", Error: "the sheet is empty"})
	}

	cols := make(map[string]int)
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := cols[strings.ToLower(h)]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, core.NewValidationError(nil, core.FieldError{
			Field: "file",
			Error: fmt.Sprintf("missing columns: %s", strings.Join(missing, ", ")),
		})
	}

	cell := func(row []string, header string) string {
		i, ok := cols[strings.ToLower(header)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	users := make([]user.NewUser, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		users = append(users, user.NewUser{
			Row:      i + 2,
			Username: cell(row, "Username"),
			Password: cell(row, "Password"),
			Name:     cell(row, "Name"),
			Role:     user.Role(cell(row, "Role")),
			TeamID:   cell(row, "TeamID"),
			Email:    cell(row, "Email"),
		})
	}
	return users, nil
}

// WriteUsers writes users to w as an .xlsx workbook. Passwords are left blank.
func WriteUsers(w io.Writer, users []user.User) error {
	rows := make([][]interface{}, 0, len(users))
	for _, usr := range users {
		rows = append(rows, []interface{}{usr.ID, usr.Username, "", usr.Name, string(usr.Role), usr.TeamID, usr.Email})
	}
	return write(w, rows)
}

// WriteTemplate writes an import template with example rows to w.
func WriteTemplate(w io.Writer) error {
	return write(w, [][]interface{}{
		{"", "nguyenvana", "Gv@2024!", "Nguyễn Văn A", string(user.RoleTeacher), "TOAN", "nguyenvana@example.edu.vn"},
		{"", "tranthib", "Tt@2024!", "Trần Thị B", string(user.RoleTeamLeader), "TOAN", ""},
		{"", "lethic", "Nv@2024!", "Lê Thị C", string(user.RoleStaff), "VP", ""},
	})
}

func write(w io.Writer, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(usersSheet)
	if err != nil {
		return errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	if err = f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(err, "deleting default sheet")
	}

	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err = f.SetSheetRow(usersSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "writing header")
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(usersSheet, 1, 1, style)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err = f.SetSheetRow(usersSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing row %d", i+2)
		}
	}

	_, err = f.WriteTo(w)
	return errors.Wrap(err, "writing workbook")
}
