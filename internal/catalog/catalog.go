// Package catalog filters and summarises the business list.
package catalog

import (
	"math"
	"strings"

	"queueaway/internal/models"
)

// Filter keeps businesses whose name or address contains term (case-insensitive) and whose
// category matches. An empty term matches everything, as does category "all" or "".
func Filter(businesses []*models.Business, term, category string) []*models.Business {
	needle := strings.ToLower(term)
	out := make([]*models.Business, 0, len(businesses))
	for _, b := range businesses {
		matchesTerm := strings.Contains(strings.ToLower(b.Name), needle) ||
			strings.Contains(strings.ToLower(b.Address), needle)
		if matchesTerm && matchesCategory(b, category) {
			out = append(out, b)
		}
	}
	return out
}

// Search matches term against the name, the category or any offered service.
func Search(businesses []*models.Business, term string) []*models.Business {
	needle := strings.ToLower(term)
	out := make([]*models.Business, 0, len(businesses))
	for _, b := range businesses {
		if strings.Contains(strings.ToLower(b.Name), needle) ||
			strings.Contains(strings.ToLower(b.Category), needle) ||
			offersMatching(b, needle) {
			out = append(out, b)
		}
	}
	return out
}

func offersMatching(b *models.Business, needle string) bool {
	for _, s := range b.Services {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func matchesCategory(b *models.Business, category string) bool {
	return category == "" || category == models.CategoryAll || b.Category == category
}

// AverageRating is the mean rating rounded to one decimal, 0 for an empty list.
func AverageRating(businesses []*models.Business) float64 {
	if len(businesses) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range businesses {
		sum += b.Rating
	}
	return math.Round(sum/float64(len(businesses))*10) / 10
}

// Regions offered as location suggestions in search.
var Regions = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh",
	"Goa", "Gujarat", "Haryana", "Himachal Pradesh", "Jharkhand", "Karnataka",
	"Kerala", "Madhya Pradesh", "Maharashtra", "Manipur", "Meghalaya", "Mizoram",
	"Nagaland", "Odisha", "Punjab", "Rajasthan", "Sikkim", "Tamil Nadu",
	"Telangana", "Tripura", "Uttar Pradesh", "Uttarakhand", "West Bengal",
}

// SuggestRegions returns up to limit regions containing term.
func SuggestRegions(term string, limit int) []string {
	needle := strings.ToLower(term)
	out := []string{}
	for _, r := range Regions {
		if limit > 0 && len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(r), needle) {
			out = append(out, r)
		}
	}
	return out
}
