package services

import (
	"context"
	"fmt"

	"github.com/bematende/bematende-backend/internal/monitor/models"
)

// JSONPublisher dipenuhi oleh *notify.MQTTClient.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, topic string, retained bool, v interface{}) error
}

// MQTTNotifier mengirim panggilan ke topic <prefix>/<facility>/calls sebagai
// pesan retained, jadi panel yang baru menyala langsung dapat panggilan terakhir.
type MQTTNotifier struct {
	pub    JSONPublisher
	prefix string
}

func NewMQTTNotifier(pub JSONPublisher, prefix string) *MQTTNotifier {
	if prefix == "" {
		prefix = "bematende"
	}
	return &MQTTNotifier{pub: pub, prefix: prefix}
}

func (n *MQTTNotifier) Topic(facilityID string) string {
	if facilityID == "" {
		facilityID = "default"
	}
	return fmt.Sprintf("%s/%s/calls", n.prefix, facilityID)
}

func (n *MQTTNotifier) NotifyCall(ctx context.Context, ev models.CallEvent) error {
	return n.pub.PublishJSON(ctx, n.Topic(ev.FacilityID), true, ev)
}
