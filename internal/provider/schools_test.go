package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/house-report/internal/model"
	"github.com/sells-group/house-report/pkg/education"
	"github.com/sells-group/house-report/pkg/google"
	"github.com/sells-group/house-report/pkg/google/mocks"
)

type fakeEducation struct {
	records []education.Record
	err     error
	rows    int
}

func (f *fakeEducation) Nearby(_ context.Context, _, _ float64, _, rows int) ([]education.Record, error) {
	f.rows = rows
	return f.records, f.err
}

func school(name string, lat, lon float64) education.Record {
	return education.Record{
		Fields: education.Fields{
			OfficialName: name,
			Kind:         "Ecole",
			Sector:       "Public",
			City:         "Paris",
		},
		Geometry: education.Geometry{Coordinates: []float64{lon, lat}},
	}
}

func TestSchools_NearestFirstWithinRadius(t *testing.T) {
	client := &fakeEducation{records: []education.Record{
		school("Collège Far", 48.8990, 2.3480),
		school("École Ordener", 48.8921, 2.3481),
		school("Lycée Lyon", 45.76, 4.83),
	}}

	out := NewSchools(client, nil, testRuntime()).Fetch(context.Background(), ordenerTarget())
	edu, ok := out.Get()
	require.True(t, ok, out.Reason())
	require.Len(t, edu.Schools, 2)
	assert.Equal(t, "École Ordener", edu.Schools[0].Name)
	assert.Equal(t, "Collège Far", edu.Schools[1].Name)
	assert.LessOrEqual(t, edu.Schools[0].DistanceM, edu.Schools[1].DistanceM)
	assert.Equal(t, "Paris", edu.Schools[0].City)
}

func TestSchools_NoneInRadius(t *testing.T) {
	client := &fakeEducation{records: []education.Record{school("Lycée Lyon", 45.76, 4.83)}}
	out := NewSchools(client, nil, testRuntime()).Fetch(context.Background(), ordenerTarget())
	assert.False(t, out.OK())
}

func TestSchools_EnrichesWithRating(t *testing.T) {
	client := &fakeEducation{records: []education.Record{
		school("École élémentaire Ordener", 48.8921, 2.3481),
		school("Collège Daniel Mayer", 48.8940, 2.3500),
	}}
	places := mocks.NewMockClient(t)
	places.On("TextSearch", mock.Anything, mock.MatchedBy(func(r google.TextSearchRequest) bool {
		return r.TextQuery == "École élémentaire Ordener Paris"
	})).Return(&google.TextSearchResponse{Places: []google.Place{{
		DisplayName:     google.DisplayName{Text: "Ecole Elementaire Ordener"},
		Rating:          4.3,
		UserRatingCount: 27,
		Phone:           "01 42 00 00 00",
		WebsiteURI:      "https://ordener.example.fr",
		Location:        &google.LatLng{Latitude: 48.8921, Longitude: 2.3481},
	}}}, nil)
	places.On("TextSearch", mock.Anything, mock.Anything).Return(nil, errUpstream)

	edu, ok := NewSchools(client, places, testRuntime()).Fetch(context.Background(), ordenerTarget()).Get()
	require.True(t, ok)
	require.Len(t, edu.Schools, 2)

	assert.Equal(t, 4.3, edu.Schools[0].Rating)
	assert.Equal(t, 27, edu.Schools[0].RatingCount)
	assert.Equal(t, "https://ordener.example.fr", edu.Schools[0].Website)

	assert.Zero(t, edu.Schools[1].Rating, "failed lookup keeps the record")
	assert.Equal(t, "Collège Daniel Mayer", edu.Schools[1].Name)
}

func TestSchools_WithLimits(t *testing.T) {
	client := &fakeEducation{records: []education.Record{
		school("École élémentaire Ordener", 48.8921, 2.3481),
		school("Collège Daniel Mayer", 48.8940, 2.3500),
	}}
	places := mocks.NewMockClient(t)
	places.On("TextSearch", mock.Anything, mock.MatchedBy(func(r google.TextSearchRequest) bool {
		return r.TextQuery == "École élémentaire Ordener Paris"
	})).Return(&google.TextSearchResponse{}, nil).Once()

	a := NewSchools(client, places, testRuntime()).WithLimits(SchoolLimits{Rows: 12, EnrichLimit: 1})
	_, ok := a.Fetch(context.Background(), ordenerTarget()).Get()
	require.True(t, ok)

	assert.Equal(t, 12, client.rows)
	assert.Equal(t, 10, a.limits.Concurrency)
	places.AssertNumberOfCalls(t, "TextSearch", 1)
}

func TestSchools_LookupUsesMatchRadius(t *testing.T) {
	client := &fakeEducation{records: []education.Record{
		school("École élémentaire Ordener", 48.8921, 2.3481),
	}}
	places := mocks.NewMockClient(t)
	places.On("TextSearch", mock.Anything, mock.MatchedBy(func(r google.TextSearchRequest) bool {
		return r.LocationBias != nil &&
			r.LocationBias.Circle.Radius == 250 &&
			r.LocationBias.Circle.Center.Latitude == 48.8921
	})).Return(&google.TextSearchResponse{}, nil).Once()

	a := NewSchools(client, places, testRuntime()).WithLimits(SchoolLimits{MatchRadius: 250})
	_, ok := a.Fetch(context.Background(), ordenerTarget()).Get()
	require.True(t, ok)
	places.AssertNumberOfCalls(t, "TextSearch", 1)
}

func TestBestPlace(t *testing.T) {
	s := model.School{Name: "Collège Daniel Mayer", GPS: model.GPS{Lat: 48.8940, Lon: 2.3500}}

	t.Run("prefers rated candidate", func(t *testing.T) {
		got, ok := BestPlace(s, []google.Place{
			{DisplayName: google.DisplayName{Text: "Collège Daniel Mayer"}, Location: &google.LatLng{Latitude: 48.8940, Longitude: 2.3500}},
			{DisplayName: google.DisplayName{Text: "College Daniel Mayer - Paris"}, Rating: 3.9, Location: &google.LatLng{Latitude: 48.8941, Longitude: 2.3501}},
		})
		require.True(t, ok)
		assert.Equal(t, 3.9, got.Rating)
	})

	t.Run("accepts name match far away", func(t *testing.T) {
		got, ok := BestPlace(s, []google.Place{
			{DisplayName: google.DisplayName{Text: "COLLEGE DANIEL MAYER"}, Rating: 4, Location: &google.LatLng{Latitude: 48.95, Longitude: 2.35}},
		})
		require.True(t, ok)
		assert.Equal(t, 4.0, got.Rating)
	})

	t.Run("rejects distant unrelated place", func(t *testing.T) {
		_, ok := BestPlace(s, []google.Place{
			{DisplayName: google.DisplayName{Text: "Boulangerie du Coin"}, Rating: 4.8, Location: &google.LatLng{Latitude: 48.95, Longitude: 2.35}},
		})
		assert.False(t, ok)
	})

	t.Run("accepts unrelated name nearby", func(t *testing.T) {
		_, ok := BestPlace(s, []google.Place{
			{DisplayName: google.DisplayName{Text: "Établissement scolaire"}, Rating: 4.1, Location: &google.LatLng{Latitude: 48.8941, Longitude: 2.3501}},
		})
		assert.True(t, ok)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, ok := BestPlace(s, nil)
		assert.False(t, ok)
	})
}

func TestMatchScore(t *testing.T) {
	words := significantWords(fold("Collège Daniel Mayer"))
	assert.Equal(t, []string{"college", "daniel", "mayer"}, words)

	c := google.Place{Rating: 4}
	// 1000 + 10*(7+6+5) - 250/10
	assert.Equal(t, 1155, matchScore(c, "college daniel mayer", words, 250))
	assert.Equal(t, 60, matchScore(google.Place{}, "daniel", words, 0))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "ecole elementaire", fold("  École Élémentaire "))
	assert.Equal(t, "lycee francais", fold("Lycée Français"))
}
