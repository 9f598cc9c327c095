package ipprovider

import (
	"context"
	"strings"
)

const ifconfigName = "ifconfig"

type Ifconfig struct {
	BaseUrl string
}

func (i *Ifconfig) setup() {
	if i.BaseUrl == "" {
		i.BaseUrl = "https://ifconfig.me/ip"
	}
}

func (i *Ifconfig) GetProviderName() string {
	return ifconfigName
}

func (i *Ifconfig) GetCurrentIP(ctx context.Context) (string, error) {
	i.setup()
	body, err := fetch(ctx, i.BaseUrl)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}
