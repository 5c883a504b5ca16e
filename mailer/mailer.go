package mailer

import (
	"FarmStore/models"
	"fmt"
	"log"
	"strings"
	"sync"

	"gopkg.in/gomail.v2"
)

type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminEmail string
}

// Mailer 在背景寄送通知信。Submit只負責排進佇列後立即返回，
// 寄送失敗只記錄，不影響任何請求的結果。
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
	queue  chan *gomail.Message
	wg     sync.WaitGroup
}

func New(cfg Config) *Mailer {
	m := &Mailer{
		cfg:   cfg,
		queue: make(chan *gomail.Message, 64),
	}
	if cfg.Host != "" {
		m.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}

	m.wg.Add(1)
	go m.run()
	return m
}

func (m *Mailer) run() {
	defer m.wg.Done()
	for msg := range m.queue {
		if m.dialer == nil {
			log.Println("未設定SMTP，略過通知信")
			continue
		}
		if err := m.dialer.DialAndSend(msg); err != nil {
			log.Printf("寄送通知信失敗: %v", err)
		}
	}
}

// Close 停止收件並等候佇列寄完
func (m *Mailer) Close() {
	close(m.queue)
	m.wg.Wait()
}

// SubmitOrderNotification 將新訂單通知排入佇列，滿載時直接丟棄。
// 不保證順序也不重試，郵件伺服器再慢也拖不住結帳請求。
func (m *Mailer) SubmitOrderNotification(order *models.Order) {
	if m.cfg.AdminEmail == "" {
		return
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.AdminEmail)
	msg.SetHeader("Subject", fmt.Sprintf("新訂單通知 #%d", order.ID))
	msg.SetBody("text/html", OrderNotificationBody(order))

	select {
	case m.queue <- msg:
	default:
		log.Printf("通知佇列已滿，放棄訂單 %d 的通知信", order.ID)
	}
}

// OrderNotificationBody 組出寄給管理者的訂單通知信內容
func OrderNotificationBody(order *models.Order) string {
	var rows strings.Builder
	for _, item := range order.Products {
		fmt.Fprintf(&rows,
			"<tr><td>%d</td><td>%d</td><td>₹%.2f</td><td>₹%.2f</td></tr>",
			item.ProductID, item.Quantity, item.Price, item.Price*float64(item.Quantity))
	}

	return fmt.Sprintf(`<div>
<h2>新訂單通知</h2>
<p>訂單編號: %d</p>
<p>下單時間: %s</p>
<p>客戶編號: %d</p>
<p>收件地址: %s</p>
<p>聯絡電話: %s</p>
<p>付款方式: %s</p>
<table border="1" cellpadding="6">
<tr><th>商品編號</th><th>數量</th><th>單價</th><th>小計</th></tr>
%s
<tr><td colspan="3">總金額</td><td>₹%.2f</td></tr>
</table>
<p>請盡快處理此訂單。</p>
</div>`,
		order.ID,
		order.CreatedAt.Format("2006-01-02 15:04:05"),
		order.UserID,
		order.DeliveryAddress,
		order.Phone,
		order.PaymentMode,
		rows.String(),
		order.TotalBill,
	)
}
