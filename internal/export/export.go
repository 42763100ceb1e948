// Пакет export — выгрузка заявок в плоскую таблицу и CSV.
//
// Колонки: фиксированные атрибуты заявки, затем объединение текстов
// вопросов из всех ответов в лексикографическом порядке. Одинаковый
// текст вопроса из разных вакансий попадает в одну колонку.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/recruitart/internal/domain/model"
)

// FixedColumns — фиксированные колонки выгрузки.
var FixedColumns = []string{
	"ID",
	"Job Title",
	"Job Category",
	"Applicant Name",
	"Email",
	"Mobile",
	"Status",
	"Applied At",
	"Expected Salary",
	"Notice Period",
	"Links",
	"Resume File Name",
	"Cover Letter",
}

// AppliedAtLayout — формат даты подачи в выгрузке.
const AppliedAtLayout = "2006-01-02 15:04:05"

// Table — плоская таблица выгрузки.
type Table struct {
	Header []string
	Rows   [][]string
}

// Flatten строит таблицу из заявок. Порядок строк — порядок records.
func Flatten(records []*model.ApplicationExport) *Table {
	questions := make(map[string]struct{})
	for _, r := range records {
		for _, a := range r.Answers {
			questions[a.QuestionText] = struct{}{}
		}
	}
	dynamic := make([]string, 0, len(questions))
	for q := range questions {
		dynamic = append(dynamic, q)
	}
	sort.Strings(dynamic)

	header := make([]string, 0, len(FixedColumns)+len(dynamic))
	header = append(header, FixedColumns...)
	header = append(header, dynamic...)

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		byQuestion := make(map[string]string, len(r.Answers))
		for _, a := range r.Answers {
			if _, ok := byQuestion[a.QuestionText]; !ok {
				byQuestion[a.QuestionText] = a.ResponseValue
			}
		}

		row := make([]string, 0, len(header))
		row = append(row,
			strconv.FormatInt(r.ID, 10),
			r.JobTitle,
			string(r.JobCategory),
			r.FullName,
			r.Email,
			r.Mobile,
			string(r.Status),
			r.AppliedAt.UTC().Format(AppliedAtLayout),
			r.ExpectedSalary,
			r.NoticePeriod,
			strings.Join(r.Links(), ", "),
			r.ResumeFileName,
			r.CoverLetter,
		)
		for _, q := range dynamic {
			row = append(row, byQuestion[q])
		}
		rows = append(rows, row)
	}

	return &Table{Header: header, Rows: rows}
}

// WriteCSV записывает таблицу в CSV (RFC 4180).
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("запись заголовка CSV: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("запись строки CSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("запись CSV: %w", err)
	}
	return nil
}

// FileName — имя файла выгрузки на момент now.
func FileName(now time.Time) string {
	return "applications_" + now.UTC().Format("20060102_150405") + ".csv"
}
