package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/rtmsim/internal/sim"
	"github.com/xuri/excelize/v2"
)

var csvHeader = []string{"index", "latent", "primary", "secondary", "selected"}

type Individual struct {
	Latent    float64 `json:"latent"`
	Primary   float64 `json:"primary"`
	Secondary float64 `json:"secondary"`
	Selected  bool    `json:"selected"`
}

type ExportData struct {
	ID          string       `json:"id,omitempty"`
	Params      sim.Params   `json:"params"`
	Summary     sim.Summary  `json:"summary"`
	Text        string       `json:"text"`
	Individuals []Individual `json:"individuals"`
}

func individuals(res *sim.Result) []Individual {
	out := make([]Individual, len(res.Population))
	for i := range out {
		out[i] = Individual{
			Latent:    res.Population[i],
			Primary:   res.Primary[i],
			Secondary: res.Secondary[i],
			Selected:  res.Mask[i],
		}
	}
	return out
}

// ExportCSV writes one row per individual. Floats use the shortest
// representation that parses back to the same value.
func ExportCSV(w io.Writer, res *sim.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for i := range res.Population {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(res.Population[i], 'g', -1, 64),
			strconv.FormatFloat(res.Primary[i], 'g', -1, 64),
			strconv.FormatFloat(res.Secondary[i], 'g', -1, 64),
			strconv.FormatBool(res.Mask[i]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ExportJSON(w io.Writer, id string, res *sim.Result) error {
	data := ExportData{
		ID:          id,
		Params:      res.Params,
		Summary:     res.Summary,
		Text:        res.Summary.Text(),
		Individuals: individuals(res),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportXLSX writes a workbook with a Summary sheet and an Individuals sheet.
func ExportXLSX(path, id string, res *sim.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}

	p, s := res.Params, res.Summary
	rows := [][]any{
		{"run", id},
		{"population_mean", p.PopulationMean},
		{"population_sd", p.PopulationSD},
		{"measurement_error", p.MeasurementError},
		{"population_size", p.PopulationSize},
		{"selection_count", p.SelectionCount},
		{"selected", s.Selected},
		{"threshold", s.Threshold},
		{"selected_primary_mean", s.SelectedPrimaryMean},
		{"selected_secondary_mean", s.SelectedSecondaryMean},
		{"regression_effect", s.RegressionEffect},
		{"reliability", s.Reliability},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}

	const dataSheet = "Individuals"
	if _, err := f.NewSheet(dataSheet); err != nil {
		return err
	}
	header := make([]any, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(dataSheet, "A1", &header); err != nil {
		return err
	}
	for i := range res.Population {
		row := []any{i, res.Population[i], res.Primary[i], res.Secondary[i], res.Mask[i]}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(dataSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
