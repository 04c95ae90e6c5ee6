package record

import (
	"errors"
	"testing"

	"github.com/fyerfyer/stockplan-extract/internal/section"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(sections ...section.Section) section.Document {
	return section.Document{Kind: section.KindRSU, Sections: sections}
}

func TestAssemble_ContinuationMerge(t *testing.T) {
	rec := Assemble(doc(section.Section{
		Name: "Cash Distribution",
		Body: []section.Pair{{Key: "Total Due", Value: ""}, {Key: "Participant", Value: "500.00"}},
	}))

	assert.Equal(t, map[string]string{"Total Due Participant": "500.00"}, rec.Fields["Cash Distribution"])
	assert.Empty(t, rec.Dangling)
}

func TestAssemble_ParentheticalContinuation(t *testing.T) {
	rec := Assemble(doc(section.Section{
		Name: "Cash Distribution",
		Body: []section.Pair{{Key: "Fee", Value: ""}, {Key: "(estimated)", Value: "2.50"}},
	}))

	assert.Equal(t, map[string]string{"Fee": "2.50"}, rec.Fields["Cash Distribution"])
}

func TestAssemble_ContinuationConsumesFollowingEmptyPair(t *testing.T) {
	// 续行标记之后的行即使本身值为空也会被消费
	rec := Assemble(doc(section.Section{
		Name: "Contributions",
		Body: []section.Pair{
			{Key: "Previous Carry", Value: ""},
			{Key: "Forward", Value: ""},
			{Key: "Total Price", Value: "100.00"},
		},
	}))

	assert.Equal(t, map[string]string{
		"Previous Carry Forward": "",
		"Total Price":            "100.00",
	}, rec.Fields["Contributions"])
}

func TestAssemble_DanglingContinuationIsDropped(t *testing.T) {
	rec := Assemble(doc(section.Section{
		Name: "Stock Distribution",
		Body: []section.Pair{{Key: "Shares Sold", Value: "10"}, {Key: "Shares Issued", Value: ""}},
	}))

	assert.Equal(t, map[string]string{"Shares Sold": "10"}, rec.Fields["Stock Distribution"])
	assert.Equal(t, []Dangling{{Section: "Stock Distribution", Key: "Shares Issued"}}, rec.Dangling)
}

func TestAssemble_MergesSameNamedSections(t *testing.T) {
	rec := Assemble(doc(
		section.Section{Name: "Calculation of Gain", Body: []section.Pair{{Key: "Market Value", Value: "1.00"}, {Key: "Fee", Value: "0.10"}}},
		section.Section{Name: "Release Summary", Body: []section.Pair{{Key: "Award Date", Value: "01/01/2020"}}},
		section.Section{Name: "Calculation of Gain", Body: []section.Pair{{Key: "Market Value", Value: "2.00"}}},
	))

	assert.Equal(t, map[string]string{"Market Value": "2.00", "Fee": "0.10"}, rec.Fields["Calculation of Gain"])
	assert.Equal(t, section.KindRSU, rec.Kind)
	assert.Len(t, rec.Fields, 2)
}

func TestAssemble_EmptySectionStillPresent(t *testing.T) {
	rec := Assemble(doc(section.Section{Name: "Registration Notes"}))

	fields, ok := rec.Fields["Registration Notes"]
	require.True(t, ok)
	assert.Empty(t, fields)
}

func TestFieldMap_Lookup(t *testing.T) {
	m := FieldMap{"Release Summary": {"Award Date": "01/01/2020"}}

	v, err := m.Lookup("Release Summary", "Award Date")
	require.NoError(t, err)
	assert.Equal(t, "01/01/2020", v)

	_, err = m.Lookup("Cash Distribution", "Fee")
	assert.True(t, errors.Is(err, ErrSectionAbsent))
	assert.Contains(t, err.Error(), "Cash Distribution")

	_, err = m.Lookup("Release Summary", "Release Date")
	assert.True(t, errors.Is(err, ErrFieldAbsent))
	assert.Contains(t, err.Error(), "Release Date")
}

func TestAssemble_FromParsedText(t *testing.T) {
	text := "EMPLOYEE STOCK PLAN RELEASE CONFIRMATION\n\n" +
		"Cash Distribution\nTotal Sale Price\t1,000.00\nTotal Due\nParticipant\t900.00\nFee\n(estimated)\t2.50\n\n"

	rec := Assemble(section.Parse(text))

	assert.Equal(t, section.KindRSU, rec.Kind)
	assert.Equal(t, map[string]string{
		"Total Sale Price":      "1,000.00",
		"Total Due Participant": "900.00",
		"Fee":                   "2.50",
	}, rec.Fields["Cash Distribution"])
}
