package services

import "fmt"

// PlanLimitError signals that a tenant hit its subscription tier's cap for a
// resource. Handlers map it to HTTP 402 with the limit details in the body.
type PlanLimitError struct {
	Resource string `json:"resource"`
	Limit    int    `json:"limit"`
	Current  int    `json:"current"`
	Tier     string `json:"tier"`
}

func (e *PlanLimitError) Error() string {
	return fmt.Sprintf("%s plan limit reached: %d/%d %s", e.Tier, e.Current, e.Limit, e.Resource)
}
