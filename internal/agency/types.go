package agency

import "time"

// Fixed keys of the two settings singletons.
const (
	AppSettingsID = "app-settings"
	AISettingsID  = "ai-settings"
)

// Financial entry types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Payment statuses used by tours.
const (
	PaymentPending   = "pending"
	PaymentPartial   = "partial"
	PaymentCompleted = "completed"
	PaymentRefunded  = "refunded"
)

// TourExpenseCategory marks financial entries projected from tour expenses.
const TourExpenseCategory = "Tur Gideri"

// DefaultCurrency applies when a record carries no currency.
const DefaultCurrency = "TRY"

// Tour is one sold tour.
//
// TotalPrice is maintained by the caller; see ExpectedTotal.
type Tour struct {
	ID                     string               `json:"id,omitempty"`
	SerialNumber           string               `json:"serialNumber,omitempty"`
	TourName               string               `json:"tourName,omitempty"`
	TourDate               string               `json:"tourDate"`
	TourEndDate            string               `json:"tourEndDate,omitempty"`
	NumberOfPeople         int                  `json:"numberOfPeople,omitempty"`
	NumberOfChildren       int                  `json:"numberOfChildren,omitempty"`
	CustomerName           string               `json:"customerName,omitempty"`
	CustomerPhone          string               `json:"customerPhone,omitempty"`
	CustomerEmail          string               `json:"customerEmail,omitempty"`
	CustomerIDNumber       string               `json:"customerIdNumber,omitempty"`
	CustomerAddress        string               `json:"customerAddress,omitempty"`
	CompanyName            string               `json:"companyName,omitempty"`
	PricePerPerson         float64              `json:"pricePerPerson,omitempty"`
	TotalPrice             float64              `json:"totalPrice,omitempty"`
	Currency               string               `json:"currency,omitempty"`
	PaymentStatus          string               `json:"paymentStatus,omitempty"`
	PaymentMethod          string               `json:"paymentMethod,omitempty"`
	PartialPaymentAmount   float64              `json:"partialPaymentAmount,omitempty"`
	PartialPaymentCurrency string               `json:"partialPaymentCurrency,omitempty"`
	Notes                  string               `json:"notes,omitempty"`
	Activities             []TourActivity       `json:"activities,omitempty"`
	Expenses               []TourExpense        `json:"expenses,omitempty"`
	AdditionalCustomers    []AdditionalCustomer `json:"additionalCustomers,omitempty"`
	DestinationID          string               `json:"destinationId,omitempty"`
	CreatedAt              time.Time            `json:"createdAt,omitzero"`
	UpdatedAt              time.Time            `json:"updatedAt,omitzero"`
}

// TourActivity is an activity booked as part of a tour. Participants of
// zero means every tour participant.
type TourActivity struct {
	ActivityID   string  `json:"activityId,omitempty"`
	Name         string  `json:"name,omitempty"`
	Date         string  `json:"date,omitempty"`
	Duration     string  `json:"duration,omitempty"`
	Price        float64 `json:"price,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	Participants int     `json:"participants,omitempty"`
}

// TourExpense is a cost incurred for a tour (guide, transport, ...).
type TourExpense struct {
	ID          string  `json:"id,omitempty"`
	Type        string  `json:"type,omitempty"`
	Name        string  `json:"name,omitempty"`
	Provider    string  `json:"provider,omitempty"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	Date        string  `json:"date,omitempty"`
	Category    string  `json:"category,omitempty"`
}

// AdditionalCustomer is a travelling companion of the main customer.
type AdditionalCustomer struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	IDNumber string `json:"idNumber,omitempty"`
}

// Financial is one ledger entry.
type Financial struct {
	ID            string    `json:"id,omitempty"`
	Type          string    `json:"type"`
	Date          string    `json:"date,omitempty"`
	Category      string    `json:"category,omitempty"`
	Description   string    `json:"description,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	PaymentMethod string    `json:"paymentMethod,omitempty"`
	RelatedTourID string    `json:"relatedTourId,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
	UpdatedAt     time.Time `json:"updatedAt,omitzero"`
}

// Customer is a person or company that bought a tour.
type Customer struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	IDNumber string `json:"idNumber,omitempty"`
	Address  string `json:"address,omitempty"`
}

// AppSettings is the application settings singleton.
type AppSettings struct {
	ID          string      `json:"id"`
	CompanyInfo CompanyInfo `json:"companyInfo"`
}

// CompanyInfo identifies the agency on printed documents.
type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	TaxID   string `json:"taxId"`
	Website string `json:"website"`
	Logo    string `json:"logo"`
}

// AISettings is the AI assistant configuration singleton.
type AISettings struct {
	ID             string `json:"id"`
	APIKey         string `json:"apiKey"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	GeminiModel    string `json:"geminiModel"`
	GeminiAPIKey   string `json:"geminiApiKey"`
	Instructions   string `json:"instructions"`
	ProgramControl bool   `json:"programControl"`
}

// DefaultAppSettings returns the settings served before any are saved.
func DefaultAppSettings() AppSettings {
	return AppSettings{ID: AppSettingsID}
}

// DefaultAISettings returns the AI settings served before any are saved.
func DefaultAISettings() AISettings {
	return AISettings{
		ID:             AISettingsID,
		Provider:       "openai",
		Model:          "gpt-3.5-turbo",
		GeminiModel:    "models/gemini-pro",
		ProgramControl: true,
	}
}

// ExpenseType is an entry of the expense-type catalog.
type ExpenseType struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Provider is a supplier of tour services.
type Provider struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Category      string `json:"category,omitempty"`
}

// Activity is an entry of the activity catalog.
type Activity struct {
	ID              string  `json:"id,omitempty"`
	Name            string  `json:"name,omitempty"`
	Description     string  `json:"description,omitempty"`
	DefaultDuration string  `json:"defaultDuration,omitempty"`
	DefaultPrice    float64 `json:"defaultPrice,omitempty"`
	DefaultCurrency string  `json:"defaultCurrency,omitempty"`
}

// Destination is an entry of the destination catalog.
type Destination struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Country     string `json:"country,omitempty"`
	Region      string `json:"region,omitempty"`
	Description string `json:"description,omitempty"`
}

// Message is one turn of an AI conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIConversation is a stored assistant conversation. Timestamp is set on
// every save.
type AIConversation struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Messages  []Message `json:"messages"`
	Timestamp time.Time `json:"timestamp"`
}

// CustomerNote is a free-text note attached to a customer. Timestamp is set
// on every save.
type CustomerNote struct {
	ID         string    `json:"id,omitempty"`
	CustomerID string    `json:"customerId"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}
