package ipprovider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type IncrementFunc func(provider string)

var httpClient = &http.Client{Timeout: 5 * time.Second}

func GetProviderName(provider Provider) string {
	return provider.GetProviderName()
}

// GetCurrentIP queries a single provider and validates its answer.
func GetCurrentIP(ctx context.Context, provider Provider, incrementFunc IncrementFunc) (string, error) {
	if incrementFunc != nil {
		incrementFunc(provider.GetProviderName())
	}
	raw, err := provider.GetCurrentIP(ctx)
	if err != nil {
		return "", err
	}
	return ParseIPv4(strings.TrimSpace(raw))
}

// Resolve tries each provider in order and returns the first answer that
// validates as an IPv4 address. A provider that errors or returns garbage is
// skipped; providers after the first success are never consulted. When the
// list is exhausted Resolve returns ErrNoIPAvailable.
func Resolve(ctx context.Context, providers []Provider, incrementFunc IncrementFunc, log *logrus.Logger) (string, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	for _, p := range providers {
		ip, err := GetCurrentIP(ctx, p, incrementFunc)
		if err != nil {
			log.WithField("provider", p.GetProviderName()).Warnf("ip lookup failed: %s", err)
			continue
		}
		log.WithField("provider", p.GetProviderName()).Debugf("resolved public ip %s", ip)
		return ip, nil
	}
	return "", ErrNoIPAvailable
}

func fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lookup returned %s", resp.Status)
	}
	return string(body), nil
}
