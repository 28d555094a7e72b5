package cart

import (
	"encoding/json"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Snapshot: состояние корзины, которое видят представления.
type Snapshot struct {
	Lines     []domain.CartLine       `json:"lines"`
	Identity  domain.Identity         `json:"identity"`
	Loading   bool                    `json:"loading"`
	ItemCount int                     `json:"item_count"`
	Pricing   domain.PricingBreakdown `json:"pricing"`
}

func newSnapshot(lines []domain.CartLine, identity domain.Identity, loading bool) Snapshot {
	cloned := domain.CloneLines(lines)
	count := 0
	for _, line := range cloned {
		count += line.Quantity
	}
	return Snapshot{
		Lines:     cloned,
		Identity:  identity,
		Loading:   loading,
		ItemCount: count,
		Pricing:   domain.ComputePricing(cloned),
	}
}

// EncodeSnapshot сериализует строки корзины для локального уровня.
func EncodeSnapshot(lines []domain.CartLine) ([]byte, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshal cart snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot разбирает снимок локального уровня. Повторные строки одного
// товара схлопываются в первую, чтобы сохранить уникальность ID.
func DecodeSnapshot(data []byte) ([]domain.CartLine, error) {
	var raw []domain.CartLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotCorrupted, err)
	}

	lines := make([]domain.CartLine, 0, len(raw))
	for _, line := range raw {
		if line.ID == "" || line.Quantity < 1 {
			continue
		}
		line.Quantity = min(line.Quantity, domain.MaxLineQuantity)
		if idx := domain.IndexOfLine(lines, line.ID); idx >= 0 {
			lines[idx].Quantity = domain.MergeQuantity(lines[idx].Quantity, line.Quantity)
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}
