package match

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-reconciler/constants"
	"github.com/joseph-ayodele/invoice-reconciler/internal/entity"
)

func ref(inv, line int, name string, unit constants.Unit, qty float64) LineRef {
	return LineRef{
		InvoiceIndex: inv,
		LineIndex:    line,
		Item: entity.NormalizedLineItem{
			Name:     name,
			Unit:     unit,
			Quantity: qty,
		},
	}
}

func TestGroupMergesSpellingVariants(t *testing.T) {
	g := NewGrouper(0.7, slog.Default())
	groups := g.Group([]LineRef{
		ref(0, 0, "Pomidorai slyviniai", constants.UnitKg, 2),
		ref(1, 0, "POMIDORAI SLYVINIAI.", constants.UnitKg, 3),
		ref(2, 0, "Agurkai trumpavaisiai", constants.UnitKg, 5),
	})

	require.Len(t, groups, 2)
	assert.Equal(t, "Pomidorai slyviniai", groups[0].DisplayName)
	assert.Len(t, groups[0].Instances, 2)
	assert.InDelta(t, 5.0, groups[0].TotalQuantity(), 1e-9)
	assert.Equal(t, "Agurkai trumpavaisiai", groups[1].DisplayName)
}

func TestGroupUnitMismatchNeverMerges(t *testing.T) {
	g := NewGrouper(0.7, slog.Default())
	groups := g.Group([]LineRef{
		ref(0, 0, "Pienas", constants.UnitL, 10),
		ref(1, 0, "Pienas", constants.UnitPcs, 4),
	})
	assert.Len(t, groups, 2)
}

func TestGroupNeedsReviewStaysSingleton(t *testing.T) {
	g := NewGrouper(0.7, slog.Default())
	flagged := ref(0, 0, "Line item 1", constants.UnitPcs, 1)
	flagged.Item.NeedsReview = true
	flaggedToo := ref(1, 0, "Line item 1", constants.UnitPcs, 1)
	flaggedToo.Item.NeedsReview = true

	groups := g.Group([]LineRef{
		flagged,
		flaggedToo,
		ref(2, 0, "Morkos", constants.UnitKg, 2),
	})
	// Identical placeholder names still never merge.
	require.Len(t, groups, 3)
	assert.Len(t, groups[0].Instances, 1)
	assert.Len(t, groups[1].Instances, 1)
}

func TestGroupDisplayNamePrefersShortestClean(t *testing.T) {
	g := NewGrouper(0.7, slog.Default())
	groups := g.Group([]LineRef{
		ref(0, 0, "Agurkai trumpavaisiai KLMN", constants.UnitKg, 1),
		ref(1, 0, "Agurkai trumpavaisiai", constants.UnitKg, 1),
	})
	require.Len(t, groups, 1)
	assert.Equal(t, "Agurkai trumpavaisiai", groups[0].DisplayName)
}

func TestGroupIdempotentOnOwnOutput(t *testing.T) {
	g := NewGrouper(0.7, slog.Default())
	first := g.Group([]LineRef{
		ref(0, 0, "Pomidorai slyviniai", constants.UnitKg, 2),
		ref(1, 0, "POMIDORAI SLYVINIAI.", constants.UnitKg, 3),
		ref(2, 0, "Agurkai trumpavaisiai", constants.UnitKg, 5),
		ref(3, 0, "Pomidorai slyv", constants.UnitKg, 1),
	})

	// Flatten the grouped instances back into line refs and group again.
	var flattened []LineRef
	for _, grp := range first {
		for _, inst := range grp.Instances {
			flattened = append(flattened, LineRef{
				InvoiceIndex: inst.InvoiceIndex,
				LineIndex:    inst.LineIndex,
				Item: entity.NormalizedLineItem{
					Name:     inst.OriginalName,
					Unit:     inst.Unit,
					Quantity: inst.Quantity,
				},
			})
		}
	}
	second := g.Group(flattened)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].DisplayName, second[i].DisplayName)
		assert.Equal(t, first[i].Unit, second[i].Unit)
		assert.Equal(t, first[i].Instances, second[i].Instances)
	}
}

func TestGroupInstanceIndicesPreserved(t *testing.T) {
	g := NewGrouper(0.7, slog.Default())
	groups := g.Group([]LineRef{
		ref(3, 7, "Bananai", constants.UnitKg, 1),
	})
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Instances, 1)
	assert.Equal(t, 3, groups[0].Instances[0].InvoiceIndex)
	assert.Equal(t, 7, groups[0].Instances[0].LineIndex)
}
