package services

import (
	"encoding/csv"
	"log"
	"os"
	"strconv"

	"github.com/kisanmitra/farm-assistant-backend/internal/models"
)

// RefData holds the process-lifetime reference tables. Loaded once at startup
// and read-only afterwards, so no locking is needed.
type RefData struct {
	cropRows  []models.CropRecommendationRow
	priceRows []models.MarketPriceRow
}

// LoadRefData reads both datasets. A missing or unreadable file leaves the
// corresponding table empty; startup never fails on reference data.
func LoadRefData(cropPath, pricePath string) *RefData {
	ref := &RefData{}

	if records, err := readCSV(cropPath); err != nil {
		log.Printf("refdata: crop dataset unavailable (%s): %v", cropPath, err)
	} else {
		for _, rec := range records {
			// Columns: N,P,K,temperature,humidity,ph,rainfall,label
			if len(rec) < 8 {
				continue
			}
			ref.cropRows = append(ref.cropRows, models.CropRecommendationRow{
				Nitrogen:    parseFloat(rec[0]),
				Phosphorus:  parseFloat(rec[1]),
				Potassium:   parseFloat(rec[2]),
				Temperature: parseFloat(rec[3]),
				Rainfall:    parseFloat(rec[6]),
				Label:       rec[7],
			})
		}
		log.Printf("refdata: loaded %d crop rows from %s", len(ref.cropRows), cropPath)
	}

	if records, err := readCSV(pricePath); err != nil {
		log.Printf("refdata: market price dataset unavailable (%s): %v", pricePath, err)
	} else {
		for _, rec := range records {
			// Columns: state,commodity,modal_price
			if len(rec) < 3 {
				continue
			}
			ref.priceRows = append(ref.priceRows, models.MarketPriceRow{
				State:      rec[0],
				Commodity:  rec[1],
				ModalPrice: parseFloat(rec[2]),
			})
		}
		log.Printf("refdata: loaded %d price rows from %s", len(ref.priceRows), pricePath)
	}

	return ref
}

// SampleCropRows returns the first n rows in load order. Deterministic on
// purpose so prompt content is reproducible.
func (r *RefData) SampleCropRows(n int) []models.CropRecommendationRow {
	if n > len(r.cropRows) {
		n = len(r.cropRows)
	}
	return r.cropRows[:n]
}

func (r *RefData) SamplePriceRows(n int) []models.MarketPriceRow {
	if n > len(r.priceRows) {
		n = len(r.priceRows)
	}
	return r.priceRows[:n]
}

// readCSV returns the data records of a CSV file, skipping the header row.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		records = records[1:]
	}
	return records, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
