package core

import "strings"

// CategoryRule maps lowercase keywords to a category.
type CategoryRule struct {
	Category Category
	Keywords []string
}

// categoryRules is scanned top to bottom and the first keyword found wins.
// Overlaps between rules are resolved by position only, so "market" in a gas
// station name still lands in Groceries.
var categoryRules = []CategoryRule{
	{Dining, []string{
		"mcdonald", "burger", "wendy", "subway", "tim horton", "starbucks", "cafe",
		"restaurant", "pizza", "sushi", "taco", "kfc", "popeye", "chick-fil-a",
		"chipotle", "panera", "dunkin", "dining", "bakery", "grill", "kitchen",
		"eatery", "diner", "bistro", "bar & grill", "pub", "tavern",
	}},
	{Groceries, []string{
		"walmart", "costco", "safeway", "kroger", "whole foods", "trader joe", "aldi",
		"publix", "grocery", "supermarket", "food mart", "market", "loblaws",
		"no frills", "metro", "sobeys", "freshco", "food basics",
		"real canadian superstore",
	}},
	{Gas, []string{
		"petro-canada", "shell", "esso", "chevron", "mobil", "exxon", "bp ",
		"gas station", "fuel", "petroleum", "sunoco", "circle k", "husky",
		"pioneer", "ultramar",
	}},
	{Insurance, []string{
		"insurance", "td insurance", "geico", "state farm", "allstate",
		"progressive", "liberty mutual", "farmers", "nationwide",
	}},
	{Utilities, []string{
		"hydro", "electric", "power", "gas bill", "water bill", "utility",
		"enbridge", "fortis", "puc", "toronto hydro", "bc hydro",
	}},
	{Subscriptions, []string{
		"netflix", "spotify", "disney+", "hulu", "amazon prime", "apple music",
		"youtube", "hbo", "paramount", "peacock", "subscription", "membership",
		"monthly fee",
	}},
	{Shopping, []string{
		"amazon", "ebay", "best buy", "target", "home depot", "lowes", "ikea",
		"winners", "marshalls", "tj maxx", "canadian tire", "shoppers drug",
		"dollarama", "dollar tree",
	}},
	{Health, []string{
		"pharmacy", "cvs", "walgreens", "rexall", "medical", "clinic", "doctor",
		"dentist", "hospital", "health", "physio", "chiro", "optom", "vision",
		"dental",
	}},
	{Travel, []string{
		"airline", "airbnb", "hotel", "motel", "expedia", "booking.com", "uber",
		"lyft", "taxi", "transit", "parking", "airport", "flight", "travel",
	}},
	{Rent, []string{
		"rent", "landlord", "property management", "lease",
	}},
}

// Categorize returns the category of the first rule with a keyword contained
// in the lowercased "description subDescription" text. ok is false when no
// keyword matches.
func Categorize(description string, subDescription *string) (c Category, ok bool) {
	sub := ""
	if subDescription != nil {
		sub = *subDescription
	}
	text := strings.ToLower(description + " " + sub)
	for _, rule := range categoryRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Category, true
			}
		}
	}
	return Uncategorized, false
}

// Rules returns a copy of the rule table in match order.
func Rules() []CategoryRule {
	out := make([]CategoryRule, len(categoryRules))
	for i, r := range categoryRules {
		out[i] = CategoryRule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}
