package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
)

// storedSheet 单个工作表规则集的持久化形态
// JSON 不支持数值键，基础价格表转成数组存储
type storedSheet struct {
	Name       string           `json:"name"`
	Source     model.SourceType `json:"source"`
	Modules    []*model.Module  `json:"modules"`
	BasePrices []basePriceRow   `json:"base_prices"`
}

// basePriceRow 基础价格表的一行
type basePriceRow struct {
	Rate  float64 `json:"rate"`
	Price float64 `json:"price"`
}

// SaveSession 持久化一个会话的完整规则集合
func (s *Store) SaveSession(id, name string, createdAt time.Time, rs *model.RuleStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO sessions (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, createdAt,
	); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM session_sheets WHERE session_id = ?`, id); err != nil {
		return err
	}

	for position, sheetName := range rs.Order {
		sheet := rs.Sheets[sheetName]
		if sheet == nil {
			continue
		}

		blob, err := json.Marshal(toStoredSheet(sheet))
		if err != nil {
			return fmt.Errorf("failed to encode sheet %s: %w", sheetName, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO session_sheets (session_id, sheet_name, source_type, position, rules_json)
			 VALUES (?, ?, ?, ?, ?)`,
			id, sheetName, string(sheet.Source), position, string(blob),
		); err != nil {
			return fmt.Errorf("failed to save sheet %s: %w", sheetName, err)
		}
	}

	return tx.Commit()
}

// LoadSession 恢复一个会话的规则集合
func (s *Store) LoadSession(id string) (*model.RuleStore, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM sessions WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, fmt.Errorf("session %s not found", id)
	}

	rows, err := s.db.Query(
		`SELECT rules_json FROM session_sheets WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rs := model.NewRuleStore()
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}

		var stored storedSheet
		if err := json.Unmarshal([]byte(blob), &stored); err != nil {
			return nil, fmt.Errorf("failed to decode sheet: %w", err)
		}
		rs.Add(fromStoredSheet(&stored))
	}

	return rs, rows.Err()
}

// SessionName 读取会话名与创建时间
func (s *Store) SessionName(id string) (string, time.Time, error) {
	var name string
	var createdAt time.Time
	err := s.db.QueryRow(`SELECT name, created_at FROM sessions WHERE id = ?`, id).Scan(&name, &createdAt)
	return name, createdAt, err
}

func toStoredSheet(sheet *model.SheetRuleSet) *storedSheet {
	prices := make([]basePriceRow, 0, len(sheet.BasePrices))
	for _, rate := range sheet.Rates() {
		prices = append(prices, basePriceRow{Rate: rate, Price: sheet.BasePrices[rate]})
	}
	return &storedSheet{
		Name:       sheet.Name,
		Source:     sheet.Source,
		Modules:    sheet.Modules,
		BasePrices: prices,
	}
}

func fromStoredSheet(stored *storedSheet) *model.SheetRuleSet {
	prices := make(map[float64]float64, len(stored.BasePrices))
	for _, row := range stored.BasePrices {
		prices[row.Rate] = row.Price
	}
	return &model.SheetRuleSet{
		Name:       stored.Name,
		Source:     stored.Source,
		Modules:    stored.Modules,
		BasePrices: prices,
	}
}
