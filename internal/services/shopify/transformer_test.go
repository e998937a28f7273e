package shopify

import (
	"testing"

	"partsync/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodyHTMLRoundTrip(t *testing.T) {
	tr := NewTransformer()

	wrapped := tr.WrapBodyHTML("High-flow filter & heat shield")
	assert.Equal(t, "<strong>High-flow filter & heat shield</strong>", wrapped)

	// The platform escapes ampersands on the way back.
	escaped := "<strong>High-flow filter &amp; heat shield</strong>"
	assert.Equal(t, "High-flow filter & heat shield", tr.UnwrapBodyHTML(escaped))

	assert.Equal(t, "", tr.WrapBodyHTML(""))
}

func TestJoinTagsSortsAndDedupes(t *testing.T) {
	tr := NewTransformer()

	joined := tr.JoinTags([]models.ShopifyTag{
		{Name: "performance"},
		{Name: "acme"},
		{Name: "performance"},
	})
	assert.Equal(t, "acme, performance", joined)
}

func TestSplitTags(t *testing.T) {
	tr := NewTransformer()

	assert.Equal(t, []string{"acme", "performance"}, tr.SplitTags("acme, performance"))
	assert.Equal(t, []string{"acme"}, tr.SplitTags(" acme ,, "))
	assert.Nil(t, tr.SplitTags("  "))
}

func TestToPayloadRendersStatusAndVariants(t *testing.T) {
	tr := NewTransformer()

	product := &models.ShopifyProduct{
		ProductID:   900,
		Title:       "Intake",
		BodyHTML:    "specs",
		IsPublished: false,
		Variants: []models.ShopifyVariant{
			{VariantID: 9001, Price: decimal.RequireFromString("120.00"), SKU: "P1"},
		},
		Tags: []models.ShopifyTag{{Name: "acme"}},
	}

	payload := tr.ToPayload(product)
	assert.Equal(t, int64(900), payload.ID)
	assert.Equal(t, "draft", payload.Status)
	assert.Equal(t, "<strong>specs</strong>", payload.BodyHTML)
	assert.Equal(t, "acme", payload.Tags)
	require.Len(t, payload.Variants, 1)
	assert.Equal(t, "120.00", payload.Variants[0].Price)

	product.IsPublished = true
	assert.Equal(t, "active", tr.ToPayload(product).Status)
}

func TestToCollectionPayloadBuildsTagRules(t *testing.T) {
	tr := NewTransformer()

	collection := &models.ShopifyCollection{
		CollectionID: 77,
		Title:        "Intakes",
		Tags:         []models.ShopifyTag{{Name: "acme"}, {Name: "intakes"}},
	}

	payload := tr.ToCollectionPayload(collection)
	assert.Equal(t, int64(77), payload.ID)
	require.Len(t, payload.Rules, 2)
	assert.Equal(t, Rule{Column: "tag", Relation: "equals", Condition: "acme"}, payload.Rules[0])
}
