package ads

import "testing"

func opDoc(date, sku string, orders, spent float64) map[string]any {
	return map[string]any{"date": date, "sku": sku, "orders": orders, "moneySpent": spent}
}

func TestAggregateOp(t *testing.T) {
	docs := []map[string]any{
		opDoc("2025/8/21", "S1", 2, 10),
		opDoc("2025-08-21", "S1", 3, 5), // different date spelling, same day
		opDoc("2025-08-21", "S2", 1, 7),
		{"date": "2025-08-21", "SKU": "S1", "Orders": "4", "MoneySpent": "2,5"}, // legacy casing, string values
		{"sku": "S3", "orders": 9},                                             // no date, skipped
		{"date": "2025-08-21", "orders": 9},                                    // no sku, skipped
	}

	rows := AggregateOp(docs)
	if len(rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(rows))
	}
	s1 := rows[0]
	if s1.SKU != "S1" || s1.Day != "2025-08-21" {
		t.Fatalf("unexpected first row %+v", s1)
	}
	if s1.Orders != 9 {
		t.Errorf("orders = %v, want 9", s1.Orders)
	}
	if s1.MoneySpent != 17.5 {
		t.Errorf("moneySpent = %v, want 17.5", s1.MoneySpent)
	}
}

func TestAggregateMbExcludeFilter(t *testing.T) {
	docs := []map[string]any{
		{"date": "2025-08-21", "sku": "S1", "orders": 1.0, "campaignId": "8787692"},
		{"date": "2025-08-21", "sku": "S1", "orders": 2.0, "campaignId": "1111111"},
		{"date": "2025-08-21", "sku": "S1", "orders": 4.0, "CampaignId": "8787692"}, // alias field
	}
	filter := ExcludeFilter{
		Field:   "campaignId",
		Aliases: []string{"CampaignId"},
		Values:  []string{"8787692"},
	}

	rows := AggregateMb(docs, filter)
	if len(rows) != 1 {
		t.Fatalf("expected 1 group, got %d", len(rows))
	}
	if rows[0].Orders != 2 {
		t.Errorf("orders = %v, want 2 after exclusion", rows[0].Orders)
	}
}

func TestAggregateMbExcludeCaseInsensitive(t *testing.T) {
	docs := []map[string]any{
		{"date": "2025-08-21", "sku": "S1", "orders": 1.0, "placement": "placement_smart"},
		{"date": "2025-08-21", "sku": "S1", "orders": 2.0, "placement": "other"},
	}
	filter := ExcludeFilter{Field: "placement", Values: []string{"PLACEMENT_SMART"}, CaseInsensitive: true}

	rows := AggregateMb(docs, filter)
	if rows[0].Orders != 2 {
		t.Errorf("orders = %v, want 2 with case-insensitive exclusion", rows[0].Orders)
	}
}

func TestMergeOuterJoin(t *testing.T) {
	op := []OpAggregate{
		{Day: "2025-08-21", SKU: "S1", Orders: 3, MoneySpent: 10},
		{Day: "2025-08-21", SKU: "S2", Orders: 1},
	}
	mb := []MbAggregate{
		{Day: "2025-08-21", SKU: "S1", Orders: 2, MoneySpent: 5},
		{Day: "2025-08-21", SKU: "S3", Models: 4},
	}

	merged := Merge(op, mb)
	if len(merged) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(merged))
	}

	byKey := make(map[string]Merged)
	for _, m := range merged {
		byKey[m.SKU] = m
	}
	if m := byKey["S1"]; m.OpOrders != 3 || m.MbOrders != 2 {
		t.Errorf("S1 = %+v, want both sides populated", m)
	}
	if m := byKey["S2"]; m.MbOrders != 0 || m.MbMoneySpent != 0 {
		t.Errorf("S2 template side should be zero, got %+v", m)
	}
	if m := byKey["S3"]; m.OpOrders != 0 || m.MbModels != 4 {
		t.Errorf("S3 = %+v, want search side zero", m)
	}
}
