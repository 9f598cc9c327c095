package ipprovider

import (
	"context"
	"strings"
)

const ipinfoName = "ipinfo"

type Ipinfo struct {
	BaseUrl string
}

func (i *Ipinfo) setup() {
	if i.BaseUrl == "" {
		i.BaseUrl = "https://ipinfo.io/ip"
	}
}

func (i *Ipinfo) GetProviderName() string {
	return ipinfoName
}

func (i *Ipinfo) GetCurrentIP(ctx context.Context) (string, error) {
	i.setup()
	body, err := fetch(ctx, i.BaseUrl)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}
