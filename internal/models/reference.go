package models

// CropRecommendationRow is one row of the crop-suitability dataset, loaded
// once at startup and read-only for the process lifetime.
type CropRecommendationRow struct {
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorus  float64 `json:"phosphorus"`
	Potassium   float64 `json:"potassium"`
	Temperature float64 `json:"temperature"`
	Rainfall    float64 `json:"rainfall"`
	Label       string  `json:"label"`
}

// MarketPriceRow is one row of the mandi price dataset.
type MarketPriceRow struct {
	State      string  `json:"state"`
	Commodity  string  `json:"commodity"`
	ModalPrice float64 `json:"modalPrice"`
}
