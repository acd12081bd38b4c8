package resources

import (
	"context"
	"fmt"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/controller"
	"github.com/vrsandeep/storydesk/internal/models"
)

// Dashboard fetches the platform statistics.
func Dashboard(ctx context.Context, d Deps) (models.DashboardStats, error) {
	res, err := d.Client.Dashboard(ctx)
	if err := controller.Outcome(d.Notifier, "fetch", "dashboard", res, err); err != nil {
		return models.DashboardStats{}, err
	}
	stats, err := api.DecodeData[models.DashboardStats](res)
	if err != nil {
		return stats, fmt.Errorf("failed to decode dashboard: %w", err)
	}
	return stats, nil
}
