package consul

import (
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// ServiceConfig describes one service instance to announce to the agent.
type ServiceConfig struct {
	ID      string
	Name    string
	Address string
	Port    int
	Tags    []string
	Check   *HealthCheck
}

// HealthCheck is the HTTP probe Consul polls for the instance.
type HealthCheck struct {
	HTTP     string
	Interval string
	Timeout  string
}

// ServiceRegistrar is implemented by Client. The binaries depend on this
// interface so registration can be faked in tests.
type ServiceRegistrar interface {
	Register(cfg *ServiceConfig) error
	Deregister(serviceID string) error
}

// Register announces the instance to the local Consul agent, attaching the
// health probe when one is configured.
func (c *Client) Register(cfg *ServiceConfig) error {
	reg := &consulapi.AgentServiceRegistration{
		ID:      cfg.ID,
		Name:    cfg.Name,
		Address: cfg.Address,
		Port:    cfg.Port,
		Tags:    cfg.Tags,
	}
	if cfg.Check != nil {
		reg.Check = &consulapi.AgentServiceCheck{
			HTTP:     cfg.Check.HTTP,
			Interval: cfg.Check.Interval,
			Timeout:  cfg.Check.Timeout,
		}
	}

	if err := c.api.Agent().ServiceRegister(reg); err != nil {
		return fmt.Errorf("failed to register %s with consul: %w", cfg.Name, err)
	}
	return nil
}

// Deregister withdraws the instance from the agent.
func (c *Client) Deregister(serviceID string) error {
	if err := c.api.Agent().ServiceDeregister(serviceID); err != nil {
		return fmt.Errorf("failed to deregister %s from consul: %w", serviceID, err)
	}
	return nil
}
