package ipprovider

import (
	"context"
	"strings"
)

const icanHaz = "icanhazip"

type ICanHazIp struct {
	BaseUrl string
}

func (i *ICanHazIp) setup() {
	if i.BaseUrl == "" {
		i.BaseUrl = "https://ipv4.icanhazip.com"
	}
}

func (i *ICanHazIp) GetProviderName() string {
	return icanHaz
}

func (i *ICanHazIp) GetCurrentIP(ctx context.Context) (string, error) {
	i.setup()
	body, err := fetch(ctx, i.BaseUrl)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}
