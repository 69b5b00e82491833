package core

import (
	"encoding/json"
	"strings"
	"time"
)

// Category is one of the fixed spending categories. The zero value means
// uncategorized and is encoded as JSON null.
type Category string

const (
	Groceries     Category = "Groceries"
	Dining        Category = "Dining"
	Rent          Category = "Rent"
	Utilities     Category = "Utilities"
	Gas           Category = "Gas"
	Insurance     Category = "Insurance"
	Subscriptions Category = "Subscriptions"
	Shopping      Category = "Shopping"
	Health        Category = "Health"
	Travel        Category = "Travel"
	Other         Category = "Other"

	Uncategorized Category = ""
)

// UncategorizedLabel is the breakdown key used for spending without a category.
const UncategorizedLabel = "Uncategorized"

var categories = []Category{
	Groceries, Dining, Rent, Utilities, Gas, Insurance,
	Subscriptions, Shopping, Health, Travel, Other,
}

type (
	Date struct {
		time.Time
	}

	// Money is a signed amount in cents. Negative values are expenses.
	Money struct {
		Cents int64
	}

	Transaction struct {
		ID             string   `json:"id"`
		OwnerID        string   `json:"ownerId"`
		Date           Date     `json:"date"`
		Description    string   `json:"description"`
		SubDescription *string  `json:"subDescription"`
		Amount         Money    `json:"amount"`
		Category       Category `json:"category"`
	}

	// TransactionPatch carries the fields of a partial update. A nil field is
	// left untouched; a non-nil SubDescription pointing at nil clears it.
	TransactionPatch struct {
		Date           *Date
		Description    *string
		SubDescription **string
		Amount         *Money
		Category       *Category
	}

	Budget struct {
		ID       string   `json:"id"`
		OwnerID  string   `json:"ownerId"`
		Category Category `json:"category"`
		Limit    Money    `json:"limit"`
	}

	BudgetPatch struct {
		Category *Category
		Limit    *Money
	}
)

// Categories returns the fixed category set in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory resolves s against the fixed category set, ignoring case and
// surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return Uncategorized, ErrUnknownCategory
}

func (c Category) Valid() bool {
	for _, k := range categories {
		if c == k {
			return true
		}
	}
	return false
}

// Label returns the breakdown key for c.
func (c Category) Label() string {
	if c == Uncategorized {
		return UncategorizedLabel
	}
	return string(c)
}

func (c Category) MarshalJSON() ([]byte, error) {
	if c == Uncategorized {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

func (c *Category) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = Uncategorized
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*c = Uncategorized
		return nil
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return &ValidationError{Field: "category", Err: err}
	}
	*c = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	*d = parsed
	return nil
}

// IsExpense reports whether t is an outflow. Zero is income.
func (t Transaction) IsExpense() bool {
	return t.Amount.Cents < 0
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if strings.TrimSpace(t.Description) == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if len(t.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Err: ErrDescriptionTooLong}
	}
	if t.Category != Uncategorized && !t.Category.Valid() {
		return &ValidationError{Field: "category", Err: ErrUnknownCategory}
	}
	return nil
}

// Apply returns a copy of t with the patch fields applied.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.SubDescription != nil {
		t.SubDescription = NormalizeSubDescription(*p.SubDescription)
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	return t
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Date == nil && p.Description == nil && p.SubDescription == nil &&
		p.Amount == nil && p.Category == nil
}

func (b Budget) Validate() error {
	if !b.Category.Valid() {
		return &ValidationError{Field: "category", Err: ErrUnknownCategory}
	}
	if b.Limit.Cents < 0 {
		return &ValidationError{Field: "limit", Err: ErrNegativeLimit}
	}
	return nil
}

func (p BudgetPatch) Apply(b Budget) Budget {
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Limit != nil {
		b.Limit = *p.Limit
	}
	return b
}

// NormalizeSubDescription trims s and maps blank values to nil.
func NormalizeSubDescription(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// User owns transactions and budgets. API tokens are stored hashed.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
