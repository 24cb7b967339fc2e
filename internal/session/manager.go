package session

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/calculator"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/combiner"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/model"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/parser"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/store"
)

// Session 一次分析会话
// 独占一份规则集合与定价结果序列；构建完成后只读，
// 重新上传时整体替换而非原地修改
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time

	Rules      *model.RuleStore
	Results    []*model.PricingResult
	Dimensions map[string][]string // 维度 → 条件域
}

// Summary 会话摘要
type Summary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	SheetCount    int       `json:"sheet_count"`
	ResultCount   int       `json:"result_count"`
	BenchmarkName string    `json:"benchmark_name,omitempty"`
	Investors     []string  `json:"investors"`
}

// Summarize 生成会话摘要
func (s *Session) Summarize() *Summary {
	summary := &Summary{
		ID:          s.ID,
		Name:        s.Name,
		CreatedAt:   s.CreatedAt,
		SheetCount:  len(s.Rules.Order),
		ResultCount: len(s.Results),
		Investors:   []string{},
	}
	if benchmark, ok := s.Rules.BenchmarkSheet(); ok {
		summary.BenchmarkName = benchmark.Name
	}
	for _, sheet := range s.Rules.InvestorSheets() {
		summary.Investors = append(summary.Investors, model.InvestorFromSheetName(sheet.Name))
	}
	sort.Strings(summary.Investors)
	return summary
}

// Manager 会话管理器
// 各会话互不共享可变状态；持久化（SQLite）是可选的外部协作者
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	db       *store.Store // 可为 nil（不持久化）
}

// NewManager 创建会话管理器
func NewManager(db *store.Store) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		db:       db,
	}
}

// CreateSession 解析基准与投资人两个工作簿并跑完整批处理管线：
// 提取 → 规则集合 → 场景生成 → 价格计算，整批同步完成
func (m *Manager) CreateSession(name string, benchmark, investor *excelize.File) (*Session, error) {
	extractor := parser.NewExtractor()

	rules := model.NewRuleStore()
	for _, sheet := range extractor.ExtractWorkbook(benchmark, model.SourceAAA) {
		rules.Add(sheet)
	}
	for _, sheet := range extractor.ExtractWorkbook(investor, model.SourceInvestor) {
		rules.Add(sheet)
	}

	if len(rules.Order) == 0 {
		return nil, errors.New("两个工作簿中均未提取到任何定价规则")
	}

	sess := m.buildSession(name, rules)

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	if m.db != nil {
		if err := m.db.SaveSession(sess.ID, sess.Name, sess.CreatedAt, rules); err != nil {
			// 持久化失败不影响本次会话，只丢失恢复能力
			log.Printf("会话 %s 持久化失败: %v", sess.ID, err)
		}
	}

	log.Printf("会话 %s 创建完成：%d 个工作表，%d 条定价结果", sess.ID, len(rules.Order), len(sess.Results))
	return sess, nil
}

// buildSession 从规则集合构建会话（生成场景并定价）
func (m *Manager) buildSession(name string, rules *model.RuleStore) *Session {
	generator := combiner.NewGenerator(rules)
	scenarios := generator.GenerateAll()
	results := calculator.NewCalculator(rules).PriceAll(scenarios)

	return &Session{
		ID:         uuid.New().String(),
		Name:       name,
		CreatedAt:  time.Now(),
		Rules:      rules,
		Results:    results,
		Dimensions: generator.DimensionValues(),
	}
}

// Get 按 ID 取会话
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// List 列出内存中的会话摘要（创建时间倒序）
func (m *Manager) List() []*Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Summary, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess.Summarize())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Delete 删除会话（含持久化副本）
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.db != nil {
		return m.db.DeleteSession(id)
	}
	return nil
}

// Resume 从持久化存储恢复会话并重算场景与价格
// 只有规则集合被持久化；结果序列是纯函数，恢复时重新推导
func (m *Manager) Resume(id string) (*Session, error) {
	if m.db == nil {
		return nil, errors.New("持久化存储未启用")
	}

	if sess, ok := m.Get(id); ok {
		return sess, nil
	}

	rules, err := m.db.LoadSession(id)
	if err != nil {
		return nil, fmt.Errorf("恢复会话失败: %w", err)
	}
	name, createdAt, err := m.db.SessionName(id)
	if err != nil {
		return nil, err
	}

	sess := m.buildSession(name, rules)
	sess.ID = id
	sess.CreatedAt = createdAt

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	log.Printf("会话 %s 已从持久化存储恢复", id)
	return sess, nil
}
