package workbook

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"quizslot/internal/domain"
	"quizslot/internal/generator"
)

// buildValidWorkbook assembles an in-memory workbook with every required
// sheet, two fragments per reel, two rule pairs per constraint sheet, and
// one completed answer row.
func buildValidWorkbook(t *testing.T) *Workbook {
	t.Helper()
	f := excelize.NewFile()

	set := func(sheet, cell string, v interface{}) {
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("SetCellValue(%s, %s) failed: %v", sheet, cell, err)
		}
	}

	for _, sheet := range RequiredSheets {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("NewSheet(%s) failed: %v", sheet, err)
		}
	}

	for _, sheet := range []string{SheetQueL, SheetQueC, SheetQueR} {
		set(sheet, "A1", "type")
		set(sheet, "B1", "question")
	}
	set(SheetQueL, "A2", 1)
	set(SheetQueL, "B2", "What is ")
	set(SheetQueL, "A3", 2)
	set(SheetQueL, "B3", "Where is ")
	set(SheetQueC, "A2", 1)
	set(SheetQueC, "B2", "the tallest ")
	set(SheetQueC, "A3", "x") // non-numeric tag
	set(SheetQueC, "B3", "the oldest ")
	set(SheetQueR, "A2", 1)
	set(SheetQueR, "B2", "mountain in Japan?")
	set(SheetQueR, "A3", 2)
	set(SheetQueR, "B3", "lake in Japan?")

	for i, h := range []string{"row_L", "row_C", "row_R", "ans", "lie_answer1", "lie_answer2", "lie_answer3", "question"} {
		set(SheetAns, string(rune('A'+i))+"1", h)
	}
	set(SheetAns, "A2", 2)
	set(SheetAns, "B2", 2)
	set(SheetAns, "C2", 2)
	set(SheetAns, "D2", "Mount Fuji")
	set(SheetAns, "E2", "Mount Aso")
	set(SheetAns, "F2", "Mount Tate")
	set(SheetAns, "G2", "Mount Haku")
	set(SheetAns, "H2", "What is the tallest mountain in Japan?")

	set(SheetLC, "A1", "type_L")
	set(SheetLC, "B1", "type_C")
	set(SheetLR, "A1", "type_L")
	set(SheetLR, "B1", "type_R")
	set(SheetCR, "A1", "type_C")
	set(SheetCR, "B1", "type_R")
	for _, sheet := range []string{SheetLC, SheetLR, SheetCR} {
		set(sheet, "A2", 1)
		set(sheet, "B2", 1)
		set(sheet, "A3", 2)
		set(sheet, "B3", 2)
	}

	return Wrap(f)
}

func TestCheckStructureValid(t *testing.T) {
	w := buildValidWorkbook(t)
	defer w.Close()

	res := w.CheckStructure()
	if !res.Valid {
		t.Fatalf("Expected valid workbook, got errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("Expected no errors, got %v", res.Errors)
	}
}

func TestCheckStructureMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	w := Wrap(f)
	defer w.Close()

	res := w.CheckStructure()
	if res.Valid {
		t.Fatal("Workbook without required sheets should be invalid")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "missing required sheets") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected missing-sheets error, got %v", res.Errors)
	}
}

func TestCheckStructureWrongHeader(t *testing.T) {
	w := buildValidWorkbook(t)
	defer w.Close()

	if err := w.f.SetCellValue(SheetAns, "D1", "answer"); err != nil {
		t.Fatalf("SetCellValue failed: %v", err)
	}

	res := w.CheckStructure()
	if res.Valid {
		t.Fatal("Workbook with a wrong header should be invalid")
	}
	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "D1") && strings.Contains(e, "ans") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected D1 header error, got %v", res.Errors)
	}
}

func TestReelEntries(t *testing.T) {
	w := buildValidWorkbook(t)
	defer w.Close()

	entries, err := w.ReelEntries(SheetQueC)
	if err != nil {
		t.Fatalf("ReelEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	if entries[0].Row != 2 || entries[0].Type != 1 || entries[0].Content != "the tallest " {
		t.Errorf("Entry 0 = %+v", entries[0])
	}

	// The non-numeric tag on row 3 reads as type zero.
	if entries[1].Row != 3 || entries[1].Type != 0 {
		t.Errorf("Entry 1 = %+v, want row 3 type 0", entries[1])
	}
}

func TestAnswerRows(t *testing.T) {
	w := buildValidWorkbook(t)
	defer w.Close()

	rows, err := w.AnswerRows()
	if err != nil {
		t.Fatalf("AnswerRows failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}

	want := domain.AnswerRow{
		RowL: 2, RowC: 2, RowR: 2,
		Answer:      "Mount Fuji",
		Distractor1: "Mount Aso",
		Distractor2: "Mount Tate",
		Distractor3: "Mount Haku",
		Question:    "What is the tallest mountain in Japan?",
	}
	if rows[0] != want {
		t.Errorf("Row = %+v, want %+v", rows[0], want)
	}
}

func TestConstraintPairs(t *testing.T) {
	w := buildValidWorkbook(t)
	defer w.Close()

	pairs, err := w.ConstraintPairs(SheetLC)
	if err != nil {
		t.Fatalf("ConstraintPairs failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("Expected 2 pairs, got %d", len(pairs))
	}
	if !pairs.Contains(1, 1) || !pairs.Contains(2, 2) {
		t.Errorf("Pair set missing expected entries: %v", pairs)
	}
	if pairs.Contains(1, 2) {
		t.Error("Pair set contains a pair that was never written")
	}
}

func TestGeneratorRoundTrip(t *testing.T) {
	// Generate from a real workbook, append the output, and confirm a second
	// run produces nothing new.
	w := buildValidWorkbook(t)
	defer w.Close()

	in, err := w.GeneratorInput()
	if err != nil {
		t.Fatalf("GeneratorInput failed: %v", err)
	}

	// Usable fragments: L rows 2,3 (types 1,2); C row 2 (type 1, row 3 is
	// untagged); R rows 2,3 (types 1,2). Rules allow only matching types, so
	// (2,2,2) survives but is already recorded. Nothing else matches.
	res := generator.Generate(in)
	if res.SkippedEntries != 1 {
		t.Errorf("SkippedEntries = %d, want 1", res.SkippedEntries)
	}
	if res.Generated != 0 {
		t.Fatalf("Expected no new combinations, got %+v", res.Combinations)
	}

	// Add a type-2 center fragment; now (3,3,3) becomes generatable.
	if err := w.f.SetCellValue(SheetQueC, "A3", 2); err != nil {
		t.Fatalf("SetCellValue failed: %v", err)
	}

	in, err = w.GeneratorInput()
	if err != nil {
		t.Fatalf("GeneratorInput failed: %v", err)
	}
	res = generator.Generate(in)
	if res.Generated != 1 {
		t.Fatalf("Expected 1 new combination, got %d", res.Generated)
	}

	want := domain.Triple{RowL: 3, RowC: 3, RowR: 3}
	if res.Combinations[0].Triple != want {
		t.Errorf("Triple = %+v, want %+v", res.Combinations[0].Triple, want)
	}
	// One row already exists, so the new combination lands on row 3.
	if res.Combinations[0].AnsRow != 3 {
		t.Errorf("AnsRow = %d, want 3", res.Combinations[0].AnsRow)
	}

	if err := w.AppendCombinations(res.Combinations); err != nil {
		t.Fatalf("AppendCombinations failed: %v", err)
	}

	got, err := w.f.GetCellValue(SheetAns, "I3")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if got != "Where is the oldest lake in Japan?" {
		t.Errorf("Assembled question = %q", got)
	}

	in, err = w.GeneratorInput()
	if err != nil {
		t.Fatalf("GeneratorInput failed: %v", err)
	}
	if res = generator.Generate(in); res.Generated != 0 {
		t.Errorf("Re-run regenerated %d combinations", res.Generated)
	}
}

func TestImportAnswers(t *testing.T) {
	w := buildValidWorkbook(t)
	defer w.Close()

	// Row 2 already has answers; a fresh combination occupies row 3 with
	// blank answer columns.
	if err := w.AppendCombinations([]domain.Combination{
		{Triple: domain.Triple{RowL: 3, RowC: 3, RowR: 3}, Question: "q", AnsRow: 3},
	}); err != nil {
		t.Fatalf("AppendCombinations failed: %v", err)
	}

	n, err := w.ImportAnswers([]AnswerImport{
		{Answer: "Lake Biwa", Lie1: "Lake Kasumigaura", Lie2: "Lake Inawashiro", Lie3: "Lake Shinji"},
	})
	if err != nil {
		t.Fatalf("ImportAnswers failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 row written, got %d", n)
	}

	for cell, want := range map[string]string{
		"D3": "Lake Biwa",
		"E3": "Lake Kasumigaura",
		"F3": "Lake Inawashiro",
		"G3": "Lake Shinji",
	} {
		got, err := w.f.GetCellValue(SheetAns, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s) failed: %v", cell, err)
		}
		if got != want {
			t.Errorf("Cell %s = %q, want %q", cell, got, want)
		}
	}
}

func TestImportAnswersSkipsFilledRows(t *testing.T) {
	w := buildValidWorkbook(t)
	defer w.Close()

	// No blank-answer combination exists yet: the first all-blank answer row
	// is 3, directly below the completed row 2.
	if _, err := w.ImportAnswers([]AnswerImport{{Answer: "x"}}); err != nil {
		t.Fatalf("ImportAnswers failed: %v", err)
	}

	got, err := w.f.GetCellValue(SheetAns, "D3")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if got != "x" {
		t.Errorf("D3 = %q, want %q", got, "x")
	}

	d2, _ := w.f.GetCellValue(SheetAns, "D2")
	if d2 != "Mount Fuji" {
		t.Errorf("Existing row 2 was overwritten: D2 = %q", d2)
	}
}

func TestLoadQuizData(t *testing.T) {
	w := buildValidWorkbook(t)
	defer w.Close()

	data, err := w.LoadQuizData()
	if err != nil {
		t.Fatalf("LoadQuizData failed: %v", err)
	}

	if len(data.Rows) != 1 {
		t.Errorf("Expected 1 answer row, got %d", len(data.Rows))
	}
	for _, list := range [][]int{data.Left, data.Center, data.Right} {
		if len(list) != 2 || list[0] != 2 || list[1] != 3 {
			t.Errorf("Symbol list = %v, want [2 3]", list)
		}
	}
}

func TestSaveAndReopen(t *testing.T) {
	w := buildValidWorkbook(t)

	path := t.TempDir() + "/quiz.xlsx"
	if err := w.SaveAs(path); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reopened.Close()

	if res := reopened.CheckStructure(); !res.Valid {
		t.Errorf("Reopened workbook invalid: %v", res.Errors)
	}
	rows, err := reopened.AnswerRows()
	if err != nil {
		t.Fatalf("AnswerRows failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Answer != "Mount Fuji" {
		t.Errorf("Reopened rows = %+v", rows)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(t.TempDir() + "/nope.xlsx"); err == nil {
		t.Error("Expected error opening a missing file")
	}
}
