package ipprovider

import (
	"context"
	"encoding/json"
)

const ipifyName = "ipify"

type Ipify struct {
	BaseUrl string
}

type ipifyResponse struct {
	Ip string `json:"ip"`
}

func (i *Ipify) setup() {
	if i.BaseUrl == "" {
		i.BaseUrl = "https://api.ipify.org?format=json"
	}
}

func (i *Ipify) GetProviderName() string {
	return ipifyName
}

func (i *Ipify) GetCurrentIP(ctx context.Context) (string, error) {
	i.setup()
	body, err := fetch(ctx, i.BaseUrl)
	if err != nil {
		return "", err
	}
	info := ipifyResponse{}
	if err := json.Unmarshal([]byte(body), &info); err != nil {
		return "", err
	}
	return info.Ip, nil
}
