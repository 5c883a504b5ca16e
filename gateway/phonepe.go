package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	payPath    = "/pg/v1/pay"
	statusPath = "/pg/v1/status"
)

// 提供商回報的終態，兩者同時成立才視為付款成功
const (
	StateCompleted      = "COMPLETED"
	ResponseCodeSuccess = "SUCCESS"
)

// Config 為商家資料與共享鹽，啟動時注入，不放全域變數
type Config struct {
	Host        string
	MerchantID  string
	SaltKey     string
	SaltIndex   string
	CallbackURL string
	//付款完成後導回的前端站台，請求未帶redirectUrl時使用
	FrontendURL string
	Timeout     time.Duration
}

// Error 表示金流提供商回絕或無法連線
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// NewMerchantTxnID 以時間戳加訂單編號尾碼組出每次嘗試唯一的交易編號
func NewMerchantTxnID(orderID string) string {
	suffix := orderID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("TXN_%d_%s", time.Now().UnixMilli(), suffix)
}

// ToMinorUnits 將金額轉為最小貨幣單位(paise)，四捨五入，不無聲截斷
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// checksum = SHA256(payload + path + saltKey) 的hex，再接 "###" 與鹽索引
func (c *Client) checksum(payload, path string) string {
	sum := sha256.Sum256([]byte(payload + path + c.cfg.SaltKey))
	return hex.EncodeToString(sum[:]) + "###" + c.cfg.SaltIndex
}

type InitiateRequest struct {
	OrderID     string
	UserID      string
	Amount      float64
	Phone       string
	RedirectURL string
}

type InitiateResult struct {
	MerchantTransactionID string
	PaymentURL            string
}

type paymentInstrument struct {
	Type string `json:"type"`
}

type initiatePayload struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	MobileNumber          string            `json:"mobileNumber"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
}

type initiateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		InstrumentResponse struct {
			RedirectInfo struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

// Initiate 向提供商發起交易並取得導向付款頁的網址。
// 失敗時不留任何中間狀態，呼叫端不應寫入訂單。
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	txnID := NewMerchantTxnID(req.OrderID)

	redirectURL := req.RedirectURL
	if redirectURL == "" && c.cfg.FrontendURL != "" {
		redirectURL = strings.TrimRight(c.cfg.FrontendURL, "/") + "/order-confirmation/" + req.OrderID
	}

	payload := initiatePayload{
		MerchantID:            c.cfg.MerchantID,
		MerchantTransactionID: txnID,
		MerchantUserID:        "MUID_" + req.UserID,
		Amount:                ToMinorUnits(req.Amount),
		RedirectURL:           redirectURL,
		RedirectMode:          "REDIRECT",
		CallbackURL:           c.cfg.CallbackURL,
		MobileNumber:          req.Phone,
		PaymentInstrument:     paymentInstrument{Type: "PAY_PAGE"},
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Op: "initiate", Err: err}
	}
	encoded := base64.StdEncoding.EncodeToString(payloadJSON)

	body, err := json.Marshal(map[string]string{"request": encoded})
	if err != nil {
		return nil, &Error{Op: "initiate", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+payPath, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Op: "initiate", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", c.checksum(encoded, payPath))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Op: "initiate", Err: err}
	}
	defer resp.Body.Close()

	var result initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Op: "initiate", Err: err}
	}
	if resp.StatusCode != http.StatusOK || !result.Success {
		msg := result.Message
		if msg == "" {
			msg = fmt.Sprintf("狀態碼 %d", resp.StatusCode)
		}
		return nil, &Error{Op: "initiate", Err: fmt.Errorf("提供商回絕交易: %s", msg)}
	}

	return &InitiateResult{
		MerchantTransactionID: txnID,
		PaymentURL:            result.Data.InstrumentResponse.RedirectInfo.URL,
	}, nil
}

type VerifyResult struct {
	Success             bool
	State               string
	ResponseCode        string
	ProviderReferenceID string
}

type statusResponse struct {
	Success bool `json:"success"`
	Data    struct {
		State               string `json:"state"`
		ResponseCode        string `json:"responseCode"`
		ProviderReferenceID string `json:"providerReferenceId"`
	} `json:"data"`
}

// Verify 向提供商的狀態查詢端點確認交易終態。
// 只回報成敗，不更動任何訂單；提供商連不上時回傳錯誤，不猜測結果。
func (c *Client) Verify(ctx context.Context, merchantTxnID string) (*VerifyResult, error) {
	path := fmt.Sprintf("%s/%s/%s", statusPath, c.cfg.MerchantID, merchantTxnID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Host+path, nil)
	if err != nil {
		return nil, &Error{Op: "verify", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-VERIFY", c.checksum("", path))
	httpReq.Header.Set("X-MERCHANT-ID", c.cfg.MerchantID)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Op: "verify", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Op: "verify", Err: fmt.Errorf("狀態查詢失敗: 狀態碼 %d", resp.StatusCode)}
	}

	var result statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Op: "verify", Err: err}
	}

	// COMPLETED 且 SUCCESS 以外的任何組合一律視為失敗
	ok := result.Success &&
		result.Data.State == StateCompleted &&
		result.Data.ResponseCode == ResponseCodeSuccess

	return &VerifyResult{
		Success:             ok,
		State:               result.Data.State,
		ResponseCode:        result.Data.ResponseCode,
		ProviderReferenceID: result.Data.ProviderReferenceID,
	}, nil
}
