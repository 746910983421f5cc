package client

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/justsurfingit/extrajob/internal/syncbus"
)

// Watch follows the server's /events stream and calls fn for every signal.
// It returns when ctx is done or the stream ends.
func (c *Client) Watch(ctx context.Context, fn func(syncbus.Topic), topics ...syncbus.Topic) error {
	q := url.Values{}
	if len(topics) > 0 {
		names := make([]string, len(topics))
		for i, t := range topics {
			names[i] = string(t)
		}
		q.Set("topics", strings.Join(names, ","))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/v1/events?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("extrajob/client: watch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
	}

	var event, data string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if event == "signal" && data != "" {
				fn(syncbus.Topic(data))
			}
			event, data = "", ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("extrajob/client: watch: %w", err)
	}
	c.logger.Info("event stream closed by server")
	return nil
}

// Bridge republishes remote signals on a local bus so in-process surfaces
// refresh when the server state changes.
func (c *Client) Bridge(ctx context.Context, bus *syncbus.Bus, topics ...syncbus.Topic) error {
	return c.Watch(ctx, func(t syncbus.Topic) { bus.Publish(t) }, topics...)
}
