package datras

import (
	"fmt"
	"strconv"

	"datrascli/internal/soap"
)

// Combination is one tuple of filter dimensions to download. Which fields
// are set depends on the operation: haul and length data use survey, year,
// and quarter; insert-date lookups add ship and country; index downloads
// add a species code.
type Combination struct {
	Survey   string
	Year     int
	Quarter  int
	Ship     string
	Country  string
	Species  int

	dims []soap.Param
}

// Params returns the combination's SOAP parameters in wire order
func (c Combination) Params() []soap.Param {
	return c.dims
}

// String renders the combination for logs and progress events
func (c Combination) String() string {
	if len(c.dims) == 0 {
		return c.Survey
	}
	out := c.dims[0].Value
	for _, p := range c.dims[1:] {
		out += "/" + p.Value
	}
	return out
}

// expandSurveyYearQuarter builds the cartesian product of the three core
// dimensions. The product is ordered but the service treats each element
// independently, so no ordering guarantee is part of the contract.
func expandSurveyYearQuarter(surveys []string, years, quarters []int) []Combination {
	combos := make([]Combination, 0, len(surveys)*len(years)*len(quarters))
	for _, survey := range surveys {
		for _, year := range years {
			for _, quarter := range quarters {
				combos = append(combos, Combination{
					Survey:  survey,
					Year:    year,
					Quarter: quarter,
					dims: []soap.Param{
						{Name: "survey", Value: survey},
						{Name: "year", Value: strconv.Itoa(year)},
						{Name: "quarter", Value: strconv.Itoa(quarter)},
					},
				})
			}
		}
	}
	return combos
}

// expandSurveyYear builds the two-dimension product used by the
// year-quarter inventory operation
func expandSurveyYear(surveys []string, years []int) []Combination {
	combos := make([]Combination, 0, len(surveys)*len(years))
	for _, survey := range surveys {
		for _, year := range years {
			combos = append(combos, Combination{
				Survey: survey,
				Year:   year,
				dims: []soap.Param{
					{Name: "survey", Value: survey},
					{Name: "year", Value: strconv.Itoa(year)},
				},
			})
		}
	}
	return combos
}

// expandCountryYear builds the two-dimension product used by the
// length-age summary operation
func expandCountryYear(countries []string, years []int) []Combination {
	combos := make([]Combination, 0, len(countries)*len(years))
	for _, country := range countries {
		for _, year := range years {
			combos = append(combos, Combination{
				Country: country,
				Year:    year,
				dims: []soap.Param{
					{Name: "country", Value: country},
					{Name: "year", Value: strconv.Itoa(year)},
				},
			})
		}
	}
	return combos
}

// expandInsertDate builds the five-dimension product for insert-date lookups
func expandInsertDate(surveys []string, years, quarters []int, ships, countries []string) []Combination {
	size := len(surveys) * len(years) * len(quarters) * len(ships) * len(countries)
	combos := make([]Combination, 0, size)
	for _, survey := range surveys {
		for _, year := range years {
			for _, quarter := range quarters {
				for _, ship := range ships {
					for _, country := range countries {
						combos = append(combos, Combination{
							Survey:  survey,
							Year:    year,
							Quarter: quarter,
							Ship:    ship,
							Country: country,
							dims: []soap.Param{
								{Name: "survey", Value: survey},
								{Name: "year", Value: strconv.Itoa(year)},
								{Name: "quarter", Value: strconv.Itoa(quarter)},
								{Name: "ship", Value: ship},
								{Name: "country", Value: country},
							},
						})
					}
				}
			}
		}
	}
	return combos
}

// expandIndices builds the four-dimension product for index downloads,
// the fourth dimension being WoRMS Aphia species codes
func expandIndices(surveys []string, years, quarters, species []int) []Combination {
	size := len(surveys) * len(years) * len(quarters) * len(species)
	combos := make([]Combination, 0, size)
	for _, survey := range surveys {
		for _, year := range years {
			for _, quarter := range quarters {
				for _, sp := range species {
					combos = append(combos, Combination{
						Survey:  survey,
						Year:    year,
						Quarter: quarter,
						Species: sp,
						dims: []soap.Param{
							{Name: "survey", Value: survey},
							{Name: "year", Value: strconv.Itoa(year)},
							{Name: "quarter", Value: strconv.Itoa(quarter)},
							{Name: "species", Value: strconv.Itoa(sp)},
						},
					})
				}
			}
		}
	}
	return combos
}

// DownloadLimitError reports a fetch that would expand to more
// combinations than the configured limit allows. No remote call is made
// when it is returned.
type DownloadLimitError struct {
	Limit     int
	Requested int
}

func (e *DownloadLimitError) Error() string {
	return fmt.Sprintf("download of %d datasets exceeds the limit of %d; pass IgnoreLimit to override", e.Requested, e.Limit)
}
