package client

import (
	"context"
	"net/http"
	"sync"
)

// AddTransactionInput は取引追加の入力を表す。
// user_idは含まない。サーバー側で認証コンテキストから決まる。
type AddTransactionInput struct {
	Type   string  `json:"type"`
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
}

// LedgerController はクライアント側の取引台帳ビューを管理する。
// 全取引・入金・出金の3つのリストを保持し、それぞれ独立に取得する。
type LedgerController struct {
	client *Client

	mu          sync.Mutex
	all         []Transaction
	deposits    []Transaction
	withdrawals []Transaction
}

// NewLedgerController はLedgerControllerを生成する。
func NewLedgerController(client *Client) *LedgerController {
	return &LedgerController{client: client}
}

// All は全取引のローカルコピーを返す。
func (l *LedgerController) All() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transaction(nil), l.all...)
}

// Deposits は入金取引のローカルコピーを返す。
func (l *LedgerController) Deposits() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transaction(nil), l.deposits...)
}

// Withdrawals は出金取引のローカルコピーを返す。
func (l *LedgerController) Withdrawals() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Transaction(nil), l.withdrawals...)
}

type transactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

// Refresh は全取引・入金・出金の3リストを並行して取得する。
// 3つの取得は独立しており、1つの失敗が他のリストの更新を妨げない。
// いずれかが失敗した場合は最初のエラーを返す。
func (l *LedgerController) Refresh(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make([]error, 3)

	fetch := func(i int, path string, assign func([]Transaction)) {
		defer wg.Done()
		var resp transactionsResponse
		if err := l.client.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
			errs[i] = err
			return
		}
		l.mu.Lock()
		assign(resp.Transactions)
		l.mu.Unlock()
	}

	wg.Add(3)
	go fetch(0, "/transactions/all", func(txs []Transaction) { l.all = txs })
	go fetch(1, "/transactions/type/deposit", func(txs []Transaction) { l.deposits = txs })
	go fetch(2, "/transactions/type/withdrawal", func(txs []Transaction) { l.withdrawals = txs })
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

type addTransactionResponse struct {
	Transaction Transaction `json:"transaction"`
}

// AddTransaction は取引を追加する。
// 成功した取引は全取引リストの先頭にのみ反映する。種別別リストは
// 次のRefreshまで古いままとなる（サーバー側の台帳が真実）。
func (l *LedgerController) AddTransaction(ctx context.Context, in AddTransactionInput) (*Transaction, error) {
	var resp addTransactionResponse
	if err := l.client.doJSON(ctx, http.MethodPost, "/transactions/add", in, &resp); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.all = append([]Transaction{resp.Transaction}, l.all...)
	l.mu.Unlock()

	return &resp.Transaction, nil
}
