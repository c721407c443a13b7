package warehouse

import "github.com/ubi-africa/ubi-monorepo/services/feature-store/internal/entity"

// RegisterBuiltins wires the aggregations behind the built-in BATCH features
// against the rideshare warehouse schema.
func RegisterBuiltins(w *GormWarehouse) {
	w.RegisterAggregation("user_total_trips",
		`SELECT COUNT(*) FROM trips WHERE rider_id = ? AND status = 'completed'`)
	w.RegisterAggregation("user_cancel_rate_7d",
		`SELECT COALESCE(AVG(CASE WHEN status = 'cancelled' THEN 1.0 ELSE 0.0 END), 0)
		 FROM trips WHERE rider_id = ? AND requested_at > NOW() - INTERVAL '7 days'`)
	w.RegisterAggregation("user_payment_failures_30d",
		`SELECT COUNT(*) FROM payments WHERE user_id = ? AND status = 'failed'
		 AND created_at > NOW() - INTERVAL '30 days'`)
	w.RegisterAggregation("driver_acceptance_rate",
		`SELECT COALESCE(AVG(CASE WHEN accepted THEN 1.0 ELSE 0.0 END), 1.0)
		 FROM dispatch_offers WHERE driver_id = ? AND offered_at > NOW() - INTERVAL '7 days'`)
	w.RegisterAggregation("driver_avg_rating",
		`SELECT COALESCE(AVG(rating), 5.0) FROM trip_ratings
		 WHERE driver_id = ? AND rated_at > NOW() - INTERVAL '90 days'`)
	w.RegisterAggregation("user_churn_risk_inputs",
		`SELECT json_build_object(
		   'trips_30d', COUNT(*) FILTER (WHERE requested_at > NOW() - INTERVAL '30 days'),
		   'cancel_rate_7d', COALESCE(AVG(CASE WHEN status = 'cancelled'
		     AND requested_at > NOW() - INTERVAL '7 days' THEN 1.0 ELSE 0.0 END), 0),
		   'days_since_last_trip', COALESCE(EXTRACT(DAY FROM NOW() - MAX(requested_at)), -1))
		 FROM trips WHERE rider_id = ?`)
	w.RegisterAggregation("user_taste_embedding",
		`SELECT to_json(taste_embedding) FROM user_taste_profiles WHERE user_id = ?`)

	w.RegisterEntityQuery(entity.EntityTypeUser,
		`SELECT DISTINCT rider_id FROM trips WHERE requested_at > NOW() - INTERVAL '30 days'`)
	w.RegisterEntityQuery(entity.EntityTypeDriver,
		`SELECT id FROM drivers WHERE deactivated_at IS NULL`)
}
