// Command anstool maintains the question workbook from the command line:
// structural checks, combination generation, and answer imports. The same
// operations are available over the admin API; this tool covers authoring
// workflows where the host is not running.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"quizslot/internal/generator"
	"quizslot/internal/workbook"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "check":
		err = runCheck(os.Args[2:])
	case "generate":
		err = runGenerate(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: anstool <command> [flags]

commands:
  check     -wb <file>                       validate workbook structure
  generate  -wb <file> [-dry-run]            generate new combinations into Ans
  import    -wb <file> -answers <json file>  import authored answers into D-G`)
}

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	path := fs.String("wb", "", "workbook path")
	fs.Parse(args)
	if *path == "" {
		return fmt.Errorf("-wb is required")
	}

	wb, err := workbook.Open(*path)
	if err != nil {
		return err
	}
	defer wb.Close()

	res := wb.CheckStructure()
	for _, e := range res.Errors {
		fmt.Println("ERROR:", e)
	}
	for _, w := range res.Warnings {
		fmt.Println("WARNING:", w)
	}
	if !res.Valid {
		return fmt.Errorf("workbook structure invalid (%d errors)", len(res.Errors))
	}
	fmt.Println("workbook structure OK")
	return nil
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	path := fs.String("wb", "", "workbook path")
	dryRun := fs.Bool("dry-run", false, "report what would be generated without writing")
	fs.Parse(args)
	if *path == "" {
		return fmt.Errorf("-wb is required")
	}

	wb, err := workbook.Open(*path)
	if err != nil {
		return err
	}
	defer wb.Close()

	if res := wb.CheckStructure(); !res.Valid {
		return fmt.Errorf("workbook structure invalid: %v", res.Errors)
	}

	in, err := wb.GeneratorInput()
	if err != nil {
		return err
	}

	result := generator.Generate(in)
	fmt.Printf("generated %d combinations (%d untagged entries skipped)\n",
		result.Generated, result.SkippedEntries)

	if *dryRun || result.Generated == 0 {
		return nil
	}

	if err := wb.AppendCombinations(result.Combinations); err != nil {
		return err
	}
	if err := wb.Save(); err != nil {
		return err
	}
	fmt.Printf("wrote rows %d through %d\n",
		result.Combinations[0].AnsRow, result.NextAnsRow-1)
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	path := fs.String("wb", "", "workbook path")
	answersPath := fs.String("answers", "", "JSON file of answer sets")
	fs.Parse(args)
	if *path == "" || *answersPath == "" {
		return fmt.Errorf("-wb and -answers are required")
	}

	raw, err := os.ReadFile(*answersPath)
	if err != nil {
		return fmt.Errorf("failed to read answers file: %w", err)
	}
	var answers []workbook.AnswerImport
	if err := json.Unmarshal(raw, &answers); err != nil {
		return fmt.Errorf("failed to parse answers file: %w", err)
	}

	wb, err := workbook.Open(*path)
	if err != nil {
		return err
	}
	defer wb.Close()

	written, err := wb.ImportAnswers(answers)
	if err != nil {
		return err
	}
	if err := wb.Save(); err != nil {
		return err
	}

	fmt.Printf("imported %d answer sets\n", written)
	return nil
}
