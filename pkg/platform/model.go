// Package platform exposes service topology and capability metadata:
// which platform and shell endpoints to talk to, which methods the
// service supports, and which regional instances exist.
package platform

import "time"

// Instance is one regional deployment of the service.
type Instance struct {
	ID          string
	Name        string
	Description string
	PlatformURL string
	ShellURL    string
}

// ServiceInfo is a snapshot of the service definition.
type ServiceInfo struct {
	PlatformURL       string
	PlatformVersion   string
	ShellURL          string
	Methods           []string
	Instances         []Instance
	CurrentInstanceID string
	LastUpdated       time.Time
}

// CurrentInstance returns the instance this connection is homed on, when
// topology was requested and the id resolves.
func (s *ServiceInfo) CurrentInstance() *Instance {
	return SelectInstance(s, s.CurrentInstanceID)
}

// SelectInstance finds an instance by id. Returns nil when absent.
func SelectInstance(info *ServiceInfo, instanceID string) *Instance {
	if info == nil || instanceID == "" {
		return nil
	}
	for i := range info.Instances {
		if info.Instances[i].ID == instanceID {
			return &info.Instances[i]
		}
	}
	return nil
}
