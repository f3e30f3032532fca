// Package workbook reads and writes the authoring spreadsheet that holds
// the question fragments, the answer table, and the combination rules.
package workbook

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"quizslot/internal/domain"
	"quizslot/internal/generator"
)

// Sheet names the authoring workflow requires.
const (
	SheetQueL = "Que_L"
	SheetQueC = "Que_C"
	SheetQueR = "Que_R"
	SheetAns  = "Ans"
	SheetLC   = "LC"
	SheetLR   = "LR"
	SheetCR   = "CR"
)

// DataStart is the first data row on every sheet; row 1 carries headers.
const DataStart = 2

// RequiredSheets lists every sheet a valid workbook must contain.
var RequiredSheets = []string{SheetQueL, SheetQueC, SheetQueR, SheetAns, SheetLC, SheetLR, SheetCR}

var ansHeaders = []string{"row_L", "row_C", "row_R", "ans", "lie_answer1", "lie_answer2", "lie_answer3", "question"}

// Workbook wraps an open spreadsheet file.
type Workbook struct {
	f *excelize.File
}

// Open loads the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return &Workbook{f: f}, nil
}

// Wrap adopts an already-open spreadsheet, typically one built in memory.
func Wrap(f *excelize.File) *Workbook {
	return &Workbook{f: f}
}

// Save writes changes back to the original file.
func (w *Workbook) Save() error {
	if err := w.f.Save(); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// SaveAs writes the workbook to a new path.
func (w *Workbook) SaveAs(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// CheckResult is the structural validation verdict.
type CheckResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// CheckStructure verifies that every required sheet exists and carries the
// expected header cells. Content is not validated here; a structurally valid
// workbook may still hold unusable rows, which load-time filtering handles.
func (w *Workbook) CheckStructure() CheckResult {
	res := CheckResult{Errors: []string{}, Warnings: []string{}}

	present := make(map[string]bool)
	for _, name := range w.f.GetSheetList() {
		present[name] = true
	}

	var missing []string
	for _, name := range RequiredSheets {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("missing required sheets: %s", strings.Join(missing, ", ")))
	}

	for _, name := range RequiredSheets {
		if present[name] {
			res.Errors = append(res.Errors, w.checkHeaders(name)...)
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

func (w *Workbook) checkHeaders(sheet string) []string {
	var want map[string]string

	switch sheet {
	case SheetQueL, SheetQueC, SheetQueR:
		want = map[string]string{"A1": "type", "B1": "question"}
	case SheetAns:
		want = make(map[string]string, len(ansHeaders))
		for i, h := range ansHeaders {
			want[fmt.Sprintf("%c1", 'A'+i)] = h
		}
	case SheetLC:
		want = map[string]string{"A1": "type_L", "B1": "type_C"}
	case SheetLR:
		want = map[string]string{"A1": "type_L", "B1": "type_R"}
	case SheetCR:
		want = map[string]string{"A1": "type_C", "B1": "type_R"}
	}

	var errs []string
	for _, cell := range sortedCells(want) {
		got, _ := w.f.GetCellValue(sheet, cell)
		if got != want[cell] {
			errs = append(errs, fmt.Sprintf("sheet %s cell %s: expected %q, got %q", sheet, cell, want[cell], got))
		}
	}
	return errs
}

func sortedCells(m map[string]string) []string {
	cells := make([]string, 0, len(m))
	for c := 'A'; c <= 'Z'; c++ {
		cell := fmt.Sprintf("%c1", c)
		if _, ok := m[cell]; ok {
			cells = append(cells, cell)
		}
	}
	return cells
}

// ReelEntries reads a question-fragment sheet top to bottom, stopping at the
// first row with a blank fragment. A missing or non-numeric type tag yields
// Type zero so the generator can count the skip.
func (w *Workbook) ReelEntries(sheet string) ([]domain.ReelEntry, error) {
	var entries []domain.ReelEntry

	for row := DataStart; ; row++ {
		content, err := w.f.GetCellValue(sheet, fmt.Sprintf("B%d", row))
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if strings.TrimSpace(content) == "" {
			break
		}

		tag, _ := w.f.GetCellValue(sheet, fmt.Sprintf("A%d", row))
		typ, err := strconv.Atoi(strings.TrimSpace(tag))
		if err != nil {
			typ = 0
		}

		entries = append(entries, domain.ReelEntry{Row: row, Type: typ, Content: content})
	}

	return entries, nil
}

// AnswerRows reads the answer table, stopping at the first row with a blank
// reel reference. Reference cells that fail to parse yield zero, which the
// selector's validity filter rejects.
func (w *Workbook) AnswerRows() ([]domain.AnswerRow, error) {
	var rows []domain.AnswerRow

	for row := DataStart; ; row++ {
		refs := make([]int, 3)
		blank := false
		for i, col := range []string{"A", "B", "C"} {
			raw, err := w.f.GetCellValue(SheetAns, fmt.Sprintf("%s%d", col, row))
			if err != nil {
				return nil, fmt.Errorf("failed to read sheet %s: %w", SheetAns, err)
			}
			if strings.TrimSpace(raw) == "" {
				blank = true
				break
			}
			refs[i], _ = strconv.Atoi(strings.TrimSpace(raw))
		}
		if blank {
			break
		}

		ans, _ := w.f.GetCellValue(SheetAns, fmt.Sprintf("D%d", row))
		lie1, _ := w.f.GetCellValue(SheetAns, fmt.Sprintf("E%d", row))
		lie2, _ := w.f.GetCellValue(SheetAns, fmt.Sprintf("F%d", row))
		lie3, _ := w.f.GetCellValue(SheetAns, fmt.Sprintf("G%d", row))
		question, _ := w.f.GetCellValue(SheetAns, fmt.Sprintf("H%d", row))

		rows = append(rows, domain.AnswerRow{
			RowL:        refs[0],
			RowC:        refs[1],
			RowR:        refs[2],
			Answer:      ans,
			Distractor1: lie1,
			Distractor2: lie2,
			Distractor3: lie3,
			Question:    question,
		})
	}

	return rows, nil
}

// ConstraintPairs reads one rule sheet into a pair set, stopping at the first
// blank first column. Rows that fail to parse as an integer pair are skipped.
func (w *Workbook) ConstraintPairs(sheet string) (generator.PairSet, error) {
	set := generator.NewPairSet()

	for row := DataStart; ; row++ {
		rawA, err := w.f.GetCellValue(sheet, fmt.Sprintf("A%d", row))
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if strings.TrimSpace(rawA) == "" {
			break
		}
		rawB, _ := w.f.GetCellValue(sheet, fmt.Sprintf("B%d", row))

		a, errA := strconv.Atoi(strings.TrimSpace(rawA))
		b, errB := strconv.Atoi(strings.TrimSpace(rawB))
		if errA != nil || errB != nil {
			continue
		}
		set[generator.Pair{A: a, B: b}] = struct{}{}
	}

	return set, nil
}

// ExistingTriples collects the row triples already present in the answer
// table, for duplicate suppression during generation.
func (w *Workbook) ExistingTriples() (generator.TripleSet, error) {
	rows, err := w.AnswerRows()
	if err != nil {
		return nil, err
	}

	set := generator.NewTripleSet()
	for _, r := range rows {
		set[domain.Triple{RowL: r.RowL, RowC: r.RowC, RowR: r.RowR}] = struct{}{}
	}
	return set, nil
}

// GeneratorInput assembles everything the combination generator needs from
// the workbook.
func (w *Workbook) GeneratorInput() (generator.Input, error) {
	left, err := w.ReelEntries(SheetQueL)
	if err != nil {
		return generator.Input{}, err
	}
	center, err := w.ReelEntries(SheetQueC)
	if err != nil {
		return generator.Input{}, err
	}
	right, err := w.ReelEntries(SheetQueR)
	if err != nil {
		return generator.Input{}, err
	}

	lc, err := w.ConstraintPairs(SheetLC)
	if err != nil {
		return generator.Input{}, err
	}
	lr, err := w.ConstraintPairs(SheetLR)
	if err != nil {
		return generator.Input{}, err
	}
	cr, err := w.ConstraintPairs(SheetCR)
	if err != nil {
		return generator.Input{}, err
	}

	existing, err := w.ExistingTriples()
	if err != nil {
		return generator.Input{}, err
	}

	return generator.Input{
		Left:     left,
		Center:   center,
		Right:    right,
		Rules:    generator.RuleSet{LC: lc, LR: lr, CR: cr},
		Existing: existing,
	}, nil
}

// AppendCombinations writes generated combinations into the answer table:
// reel references into columns A to C and the assembled question text into
// column I, at each combination's assigned row. Answer columns D to G stay
// blank for the answer-import step.
func (w *Workbook) AppendCombinations(combos []domain.Combination) error {
	for _, c := range combos {
		cells := map[string]interface{}{
			fmt.Sprintf("A%d", c.AnsRow): c.Triple.RowL,
			fmt.Sprintf("B%d", c.AnsRow): c.Triple.RowC,
			fmt.Sprintf("C%d", c.AnsRow): c.Triple.RowR,
			fmt.Sprintf("I%d", c.AnsRow): c.Question,
		}
		for cell, v := range cells {
			if err := w.f.SetCellValue(SheetAns, cell, v); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

// AnswerImport is one authored answer set, keyed by destination column.
type AnswerImport struct {
	Answer string `json:"D"`
	Lie1   string `json:"E"`
	Lie2   string `json:"F"`
	Lie3   string `json:"G"`
}

// ImportAnswers writes answer sets into columns D to G, starting at the
// first data row where all four are blank and continuing downward. Returns
// the number of rows written.
func (w *Workbook) ImportAnswers(answers []AnswerImport) (int, error) {
	row, err := w.firstBlankAnswerRow()
	if err != nil {
		return 0, err
	}

	written := 0
	for _, a := range answers {
		cells := map[string]string{
			fmt.Sprintf("D%d", row): a.Answer,
			fmt.Sprintf("E%d", row): a.Lie1,
			fmt.Sprintf("F%d", row): a.Lie2,
			fmt.Sprintf("G%d", row): a.Lie3,
		}
		for cell, v := range cells {
			if err := w.f.SetCellValue(SheetAns, cell, v); err != nil {
				return written, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
		written++
		row++
	}

	return written, nil
}

func (w *Workbook) firstBlankAnswerRow() (int, error) {
	for row := DataStart; ; row++ {
		allBlank := true
		for _, col := range []string{"D", "E", "F", "G"} {
			v, err := w.f.GetCellValue(SheetAns, fmt.Sprintf("%s%d", col, row))
			if err != nil {
				return 0, fmt.Errorf("failed to read sheet %s: %w", SheetAns, err)
			}
			if strings.TrimSpace(v) != "" {
				allBlank = false
				break
			}
		}
		if allBlank {
			return row, nil
		}
	}
}

// QuizData is everything the gameplay loader needs from one workbook.
type QuizData struct {
	Rows   []domain.AnswerRow
	Left   []int
	Center []int
	Right  []int
}

// LoadQuizData reads the answer table and the per-reel symbol row lists. The
// symbol lists are the row numbers of every non-blank fragment on each
// question sheet, in sheet order, which fixes the reel's visual layout.
func (w *Workbook) LoadQuizData() (*QuizData, error) {
	rows, err := w.AnswerRows()
	if err != nil {
		return nil, err
	}

	data := &QuizData{Rows: rows}
	for _, s := range []struct {
		sheet string
		dst   *[]int
	}{
		{SheetQueL, &data.Left},
		{SheetQueC, &data.Center},
		{SheetQueR, &data.Right},
	} {
		entries, err := w.ReelEntries(s.sheet)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			*s.dst = append(*s.dst, e.Row)
		}
	}

	return data, nil
}
