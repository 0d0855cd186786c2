package main

import (
	"encoding/csv"
	"flag"
	"log"
	"os"

	"xlsxfill_srv/internal/export"
	"xlsxfill_srv/internal/tabular"
)

// Пример использования фасада: заполняет лист шаблона данными из
// CSV-файла. Первая строка CSV считается заголовками.
func main() {
	var (
		template  = flag.String("template", "", "путь к шаблону xlsx")
		data      = flag.String("data", "", "путь к CSV с данными")
		out       = flag.String("out", "", "путь результата (пусто - правка на месте)")
		sheetName = flag.String("sheet", "", "имя целевого листа")
		sheetID   = flag.Int("sheet-id", 1, "sheetId целевого листа")
		tableName = flag.String("table", "", "имя таблицы для обновления диапазона")
		preserve  = flag.Bool("preserve-formulas", false, "сохранять вычисляемые колонки таблицы")
		headers   = flag.Bool("headers", false, "выводить строку заголовков")
		autoCalc  = flag.Bool("auto-calc", false, "включить пересчёт при открытии")
	)
	flag.Parse()

	if *template == "" || *data == "" {
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*data)
	if err != nil {
		log.Fatalf("открытие данных: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		log.Fatalf("чтение CSV: %v", err)
	}
	if len(records) == 0 {
		log.Fatal("пустой файл данных")
	}

	table := export.NewTable()
	if *sheetName != "" {
		table.SetSheetName(*sheetName)
	} else {
		table.SetSheetID(*sheetID)
	}
	if *tableName != "" {
		table.RefreshTableRange(*tableName)
		if *preserve {
			table.PreserveFormulas(*tableName)
		}
	}

	hs := make([]tabular.Header, len(records[0]))
	for i, name := range records[0] {
		hs[i] = tabular.Header{Name: name, Label: name}
	}
	table.SetHeaders(hs)
	if *headers {
		table.ShowHeaders()
	}

	for _, rec := range records[1:] {
		values := make([]any, len(rec))
		for i, v := range rec {
			values[i] = v
		}
		table.AddRowValues(values)
	}

	if err := table.AttachToFile(*template, *out, *autoCalc); err != nil {
		log.Fatalf("заполнение шаблона: %v", err)
	}

	target := *template
	if *out != "" {
		target = *out
	}
	log.Printf("готово: %s (%d строк)", target, len(records)-1)
}
