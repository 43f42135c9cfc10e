package control

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the control server of a running background process.
type Client struct{ addr string }

func NewClient(addr string) *Client { return &Client{addr: addr} }

func (c *Client) SetInterval(d time.Duration) (time.Duration, error) {
	var r struct {
		Old string `json:"old"`
		New string `json:"new"`
	}
	if err := c.post("/set-interval", map[string]interface{}{"duration": d.String()}, &r); err != nil {
		return 0, err
	}
	if r.Old != "" {
		if old, err := time.ParseDuration(r.Old); err == nil {
			return old, nil
		}
	}
	return 0, nil
}

func (c *Client) SetWorkers(n int) (int, error) {
	var r struct {
		Old int `json:"old"`
		New int `json:"new"`
	}
	if err := c.post("/set-workers", map[string]interface{}{"workers": n}, &r); err != nil {
		return 0, err
	}
	return r.Old, nil
}

func (c *Client) Subscribe(url, user string) error {
	return c.post("/subscribe", map[string]interface{}{"url": url, "user": user}, nil)
}

func (c *Client) post(path string, payload interface{}, out interface{}) error {
	body, _ := json.Marshal(payload)
	resp, err := http.Post("http://"+c.addr+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("server error: %s", resp.Status)
	}
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
