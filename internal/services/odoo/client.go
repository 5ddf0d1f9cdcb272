package odoo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kolo/xmlrpc"
)

// Client represents an Odoo XML-RPC client
type Client struct {
	URL       string
	Database  string
	Username  string
	Password  string
	Uid       int
	CommonURL string
	ObjectURL string
	Transport http.RoundTripper
}

// NewClient creates a new Odoo client
func NewClient(url, db, username, password string) *Client {
	return &Client{
		URL:       url,
		Database:  db,
		Username:  username,
		Password:  password,
		CommonURL: fmt.Sprintf("%s/xmlrpc/2/common", url),
		ObjectURL: fmt.Sprintf("%s/xmlrpc/2/object", url),
		Transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second},
	}
}

// Authenticate authenticates with Odoo and returns the user ID
func (c *Client) Authenticate() (int, error) {
	client, err := xmlrpc.NewClient(c.CommonURL, c.Transport)
	if err != nil {
		return 0, fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Username, c.Password, make([]interface{}, 0)}
	var uid int
	if err := client.Call("authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("authentication failed: %w", err)
	}
	if uid == 0 {
		return 0, fmt.Errorf("authentication rejected for user %s", c.Username)
	}

	c.Uid = uid
	return uid, nil
}

// SearchRead performs a search_read and decodes the records into result, a pointer to
// a slice. Fields Odoo leaves empty arrive as false; see models.OdooString.
func (c *Client) SearchRead(model string, domain []interface{}, fields []string, limit, offset int, result interface{}) error {
	client, err := xmlrpc.NewClient(c.ObjectURL, c.Transport)
	if err != nil {
		return fmt.Errorf("failed to create XML-RPC client: %w", err)
	}
	defer client.Close()

	args := []interface{}{
		c.Database,
		c.Uid,
		c.Password,
		model,
		"search_read",
		[]interface{}{domain},
		map[string]interface{}{
			"fields": fields,
			"limit":  limit,
			"offset": offset,
			"order":  "id",
		},
	}

	var rawResult []map[string]interface{}
	if err := client.Call("execute_kw", args, &rawResult); err != nil {
		return fmt.Errorf("failed to execute search_read on %s: %w", model, err)
	}

	// Round-trip through JSON so record types can use json tags
	jsonData, err := json.Marshal(rawResult)
	if err != nil {
		return fmt.Errorf("failed to marshal raw result: %w", err)
	}
	if err := json.Unmarshal(jsonData, result); err != nil {
		return fmt.Errorf("failed to unmarshal into target: %w", err)
	}
	return nil
}
