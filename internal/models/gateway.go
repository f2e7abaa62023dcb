package models

type Gateway string

const (
	GatewayInicis Gateway = "inicis"
	GatewayKG     Gateway = "kg"
	GatewayNice   Gateway = "nice"
	GatewayToss   Gateway = "toss"
	GatewayKakao  Gateway = "kakao"
)

// SupportedGateways is ordered; listings keep this order.
var SupportedGateways = []Gateway{
	GatewayInicis,
	GatewayKG,
	GatewayNice,
	GatewayToss,
	GatewayKakao,
}

var gatewayDisplayNames = map[Gateway]string{
	GatewayInicis: "KG이니시스",
	GatewayKG:     "KG모빌리언스",
	GatewayNice:   "NICE페이먼츠",
	GatewayToss:   "토스페이먼츠",
	GatewayKakao:  "카카오페이",
}

type GatewayInfo struct {
	ID   Gateway `json:"id"`
	Name string  `json:"name"`
}

func (g Gateway) IsSupported() bool {
	for _, s := range SupportedGateways {
		if s == g {
			return true
		}
	}
	return false
}

// DisplayName falls back to the raw identifier for unknown gateways.
func (g Gateway) DisplayName() string {
	if name, ok := gatewayDisplayNames[g]; ok {
		return name
	}
	return string(g)
}
