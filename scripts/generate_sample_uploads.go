//go:build ignore

package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Writes sample customer lists for manual testing:
//   customers_small.csv   header plus 10 ids, one blank row
//   customers_large.csv   header plus -rows ids (three chunks at the default size)
//   customers.xlsx        header plus 25 ids, numeric and text
//   bad_header.csv        wrong header, rejected as INVALID_FILE
func main() {
	dir := flag.String("dir", "data/samples", "output directory")
	rows := flag.Int("rows", 2500, "number of ids in the large CSV")
	flag.Parse()

	// Create directory if it doesn't exist
	if err := os.MkdirAll(*dir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	small := make([]string, 0, 11)
	for i := 1; i <= 10; i++ {
		small = append(small, fmt.Sprintf("CUST%06d", i))
		if i == 5 {
			small = append(small, "")
		}
	}
	writeCSV(filepath.Join(*dir, "customers_small.csv"), "customer_id", small)

	large := make([]string, *rows)
	for i := range large {
		large[i] = fmt.Sprintf("CUST%06d", i+1)
	}
	writeCSV(filepath.Join(*dir, "customers_large.csv"), "customer_id", large)

	writeCSV(filepath.Join(*dir, "bad_header.csv"), "id", []string{"CUST000001"})

	writeXLSX(filepath.Join(*dir, "customers.xlsx"), 25)

	fmt.Println("\nSample uploads generated successfully!")
}

func writeCSV(path, header string, ids []string) {
	file, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create file %s: %v", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintln(w, header)
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("Failed to write file %s: %v", path, err)
	}

	fmt.Printf("Created %s with %d rows\n", path, len(ids))
}

func writeXLSX(path string, n int) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	if err := f.SetCellValue(sheet, "A1", "customer_id"); err != nil {
		log.Fatalf("Failed to write header: %v", err)
	}
	for i := 1; i <= n; i++ {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			log.Fatalf("Failed to address row %d: %v", i+1, err)
		}
		// Alternate numeric and text ids, as exported spreadsheets often do
		var value any = 100000 + i
		if i%2 == 0 {
			value = fmt.Sprintf("CUST%06d", i)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			log.Fatalf("Failed to write %s: %v", cell, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		log.Fatalf("Failed to save %s: %v", path, err)
	}

	fmt.Printf("Created %s with %d rows\n", path, n)
}
