package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/agvkernel/core/mqtt"
	"github.com/kilianp07/agvkernel/infra/logger"
)

// Default topics. OrderTopic takes the vehicle name as its only verb.
const (
	DefaultOrderTopic  = "agv/%s/order"
	DefaultReportTopic = "agv/+/state"
	DefaultAckTopic    = "agv/+/ack"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker       string          `json:"broker"`
	ClientID     string          `json:"client_id"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	OrderTopic   string          `json:"order_topic"`
	ReportTopic  string          `json:"report_topic"`
	AckTopic     string          `json:"ack_topic"`
	AckTimeoutMS int             `json:"ack_timeout_ms"`
	UseTLS       bool            `json:"use_tls"`
	ClientCert   string          `json:"client_cert"`
	ClientKey    string          `json:"client_key"`
	CABundle     string          `json:"ca_bundle"`
	AuthMethod   string          `json:"auth_method"`
	QoS          map[string]byte `json:"qos"`
	LWTTopic     string          `json:"lwt_topic"`
	LWTPayload   string          `json:"lwt_payload"`
	LWTQoS       byte            `json:"lwt_qos"`
	LWTRetain    bool            `json:"lwt_retain"`
	MaxRetries   int             `json:"max_retries"`
	BackoffMS    int             `json:"backoff_ms"`
	TLSConfig    *tls.Config     `json:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// AckTimeout is the configured ack timeout. Zero disables ack tracking.
func (c Config) AckTimeout() time.Duration {
	return time.Duration(c.AckTimeoutMS) * time.Millisecond
}

func (c Config) withDefaults() Config {
	if c.OrderTopic == "" {
		c.OrderTopic = DefaultOrderTopic
	}
	if c.ReportTopic == "" {
		c.ReportTopic = DefaultReportTopic
	}
	if c.AckTopic == "" {
		c.AckTopic = DefaultAckTopic
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
	return c
}

// ReportHandler receives decoded vehicle reports. It is called from the
// paho callback goroutine and must not block for long.
type ReportHandler func(coremqtt.VehicleReport)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient publishes order messages and consumes vehicle reports using
// Eclipse Paho.
type PahoClient struct {
	cli         pahoClient
	orderTopic  string
	reportTopic string
	ackTopic    string
	qos         map[string]byte
	onReport    ReportHandler

	mu         sync.Mutex
	ackChans   map[string]chan struct{}
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the report and
// ack topics. Subscriptions are renewed on every reconnect.
func NewPahoClient(cfg Config, onReport ReportHandler) (*PahoClient, error) {
	cfg = cfg.withDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		orderTopic:  cfg.OrderTopic,
		reportTopic: cfg.ReportTopic,
		ackTopic:    cfg.AckTopic,
		qos:         cfg.QoS,
		onReport:    onReport,
		ackChans:    make(map[string]chan struct{}),
		logger:      log,
		maxRetries:  cfg.MaxRetries,
		backoff:     time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(pc.ackTopic, pc.qosFor("ack"), pc.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", pc.ackTopic, token.Error())
		}
		if token := c.Subscribe(pc.reportTopic, pc.qosFor("report"), pc.handleReport); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", pc.reportTopic, token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	pc.cli = c
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var ack coremqtt.Ack
	if err := json.Unmarshal(msg.Payload(), &ack); err != nil {
		p.logger.Errorf("failed to decode ack: %v", err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if ch, ok := p.ackChans[ack.MessageID]; ok {
		select {
		case ch <- struct{}{}:
		default:
		}
		p.logger.Debugf("received ack %s", ack.MessageID)
	}
}

func (p *PahoClient) handleReport(_ paho.Client, msg paho.Message) {
	var r coremqtt.VehicleReport
	if err := json.Unmarshal(msg.Payload(), &r); err != nil {
		p.logger.Errorf("failed to decode report on %s: %v", msg.Topic(), err)
		return
	}
	if r.Vehicle == "" {
		r.Vehicle = vehicleFromTopic(p.reportTopic, msg.Topic())
	}
	if r.Vehicle == "" {
		p.logger.Warnf("dropping report without vehicle on %s", msg.Topic())
		return
	}
	if p.onReport != nil {
		p.onReport(r)
	}
}

// vehicleFromTopic returns the topic level matched by the single-level
// wildcard of the pattern.
func vehicleFromTopic(pattern, topic string) string {
	pl := strings.Split(pattern, "/")
	tl := strings.Split(topic, "/")
	if len(pl) != len(tl) {
		return ""
	}
	for i, level := range pl {
		if level == "+" {
			return tl[i]
		}
	}
	return ""
}

// PublishOrder sends the message to the vehicle's order topic. A missing
// message ID is generated. The ack channel is registered before publishing so
// fast acks are not lost.
func (p *PahoClient) PublishOrder(vehicle string, msg coremqtt.OrderMessage) (string, error) {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	msg.Vehicle = vehicle
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.ackChans[msg.MessageID] = make(chan struct{}, 1)
	p.mu.Unlock()

	topic := fmt.Sprintf(p.orderTopic, vehicle)
	qos := p.qosFor("order")
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Infof("sent %s message %s to %s", msg.Action, msg.MessageID, topic)
			return msg.MessageID, nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	p.forget(msg.MessageID)
	return "", publishErr
}

// WaitForAck blocks until an ACK for the given message ID is received or timeout.
func (p *PahoClient) WaitForAck(messageID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.ackChans[messageID]
	p.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("message %s: %w", messageID, coremqtt.ErrUnknownMessage)
	}
	defer p.forget(messageID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true, nil
	case <-timer.C:
		return false, fmt.Errorf("message %s: %w", messageID, coremqtt.ErrAckTimeout)
	}
}

func (p *PahoClient) forget(messageID string) {
	p.mu.Lock()
	delete(p.ackChans, messageID)
	p.mu.Unlock()
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
