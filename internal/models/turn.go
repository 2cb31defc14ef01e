package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SenderUser      = "user"
	SenderAssistant = "assistant"

	DefaultLanguage = "en-IN"
)

// ConversationTurn is one stored message in a user's conversation. Turns are
// append-only: they are never mutated or deleted by this service.
type ConversationTurn struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Sender    string             `json:"sender" bson:"sender"` // "user" or "assistant"
	Text      string             `json:"text" bson:"text"`
	ImageRef  string             `json:"imageRef,omitempty" bson:"imageRef,omitempty"`
	Language  string             `json:"language" bson:"language"` // BCP-47-like tag (en-IN, hi-IN, ...)
	Boxes     []BoundingBox      `json:"boxes,omitempty" bson:"boxes,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// BoundingBox is a normalized image region on a 0-1000 scale.
type BoundingBox struct {
	Label string `json:"label" bson:"label"`
	XMin  int    `json:"xmin" bson:"xmin"`
	YMin  int    `json:"ymin" bson:"ymin"`
	XMax  int    `json:"xmax" bson:"xmax"`
	YMax  int    `json:"ymax" bson:"ymax"`
}

// WeatherSnapshot is supplied per-request by the weather collaborator and is
// never persisted here; the orchestrator only formats it into the prompt.
type WeatherSnapshot struct {
	Temp            float64 `json:"temp"`
	Humidity        float64 `json:"humidity"`
	RainMm          float64 `json:"rain_mm"`
	WindSpeedKmh    float64 `json:"wind_speed_kmh"`
	ConditionCode   string  `json:"condition_code"`
	PressureHpa     float64 `json:"pressure_hpa"`
	PrecipitationMm float64 `json:"precipitation_mm"`
}

type ChatRequest struct {
	Message     string `json:"message" form:"message"`
	Language    string `json:"language" form:"language"`
	WeatherData string `json:"weatherData" form:"weatherData"`
}

type ChatResponse struct {
	Response string        `json:"response"`
	Boxes    []BoundingBox `json:"boxes,omitempty"`
}

type VoiceResponse struct {
	ReplyText    string `json:"replyText"`
	AudioBase64  string `json:"audioBase64"`
	LanguageCode string `json:"languageCode"`
}

type DiagnosisResult struct {
	Diagnosis      string   `json:"diagnosis"`
	Crop           string   `json:"crop"`
	Confidence     string   `json:"confidence"`
	Symptoms       []string `json:"symptoms"`
	OrganicRemedy  string   `json:"organic_remedy"`
	ChemicalRemedy string   `json:"chemical_remedy"`
}

// SoilReport holds soil-card values read off an uploaded photo. Fields stay
// empty strings when the card is unreadable.
type SoilReport struct {
	N  string `json:"n"`
	P  string `json:"p"`
	K  string `json:"k"`
	Ph string `json:"ph"`
}

type RecommendRequest struct {
	SoilData   SoilReport `json:"soilData" validate:"required"`
	Budget     float64    `json:"budget" validate:"required,gt=0"`
	CustomCrop string     `json:"customCrop"`
	LandID     string     `json:"landId"`
}

type Recommendation struct {
	Crop           string `json:"crop"`
	Reason         string `json:"reason"`
	EstimatedCost  string `json:"estimated_cost"`
	ExpectedProfit string `json:"expected_profit"`
}

type RecommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
	MarketInsight   string           `json:"market_insight"`
	Disclaimer      string           `json:"disclaimer"`
}
