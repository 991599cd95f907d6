package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/trip-tracking/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) SaveOrder(ctx context.Context, o *models.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	stops, err := json.Marshal(o.Stops)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO orders(id, kind, status, rider_id, driver_id, pickup_lat, pickup_lng, dest_lat, dest_lng, stops, car_type, price, items, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.Kind, o.Status, o.RiderID, nullString(o.DriverID),
		o.Pickup.Lat, o.Pickup.Lng, o.Destination.Lat, o.Destination.Lng,
		stops, o.CarType, o.Price, items, o.CreatedAt, o.UpdatedAt)
	return err
}

func (p *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, kind, status, rider_id, COALESCE(driver_id, ''), pickup_lat, pickup_lng, dest_lat, dest_lng, stops, car_type, price, items, created_at, updated_at
		FROM orders WHERE id = $1`, id)
	var o models.Order
	var stops, items []byte
	err := row.Scan(&o.ID, &o.Kind, &o.Status, &o.RiderID, &o.DriverID,
		&o.Pickup.Lat, &o.Pickup.Lng, &o.Destination.Lat, &o.Destination.Lng,
		&stops, &o.CarType, &o.Price, &items, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(stops) > 0 {
		if err := json.Unmarshal(stops, &o.Stops); err != nil {
			return nil, err
		}
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func (p *PostgresStore) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res, err := p.db.ExecContext(ctx, `UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3`, status, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) HasActiveOrder(ctx context.Context, riderID string) (bool, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE rider_id = $1 AND status NOT IN ('completed','delivered','cancelled')
		)`, riderID)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (p *PostgresStore) GetDriver(ctx context.Context, id string) (*models.DriverInfo, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, name, rating, plate, vehicle, avatar_glyph FROM drivers WHERE id = $1`, id)
	var d models.DriverInfo
	err := row.Scan(&d.ID, &d.Name, &d.Rating, &d.Plate, &d.Vehicle, &d.AvatarGlyph)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (p *PostgresStore) SaveRating(ctx context.Context, r models.Rating) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ratings(order_id, driver_id, rider_id, value, feedback, created_at)
		VALUES($1,$2,$3,$4,$5,$6)`,
		r.OrderID, r.DriverID, r.RiderID, r.Value, r.Feedback, r.CreatedAt)
	return err
}

func (p *PostgresStore) FleetOptions(ctx context.Context, serviceMode, extraOption string) ([]models.VehicleOffer, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT class, price, eta, capacity, COALESCE(badge, '')
		FROM fleet_options
		WHERE service_mode = $1 AND (extra_option = $2 OR extra_option = '')
		ORDER BY position`, serviceMode, extraOption)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.VehicleOffer
	for rows.Next() {
		var v models.VehicleOffer
		if err := rows.Scan(&v.Class, &v.Price, &v.ETA, &v.Capacity, &v.Badge); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
