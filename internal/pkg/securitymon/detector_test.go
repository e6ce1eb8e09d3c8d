package securitymon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/queryhub/QueryHub/app/models"
)

type fakeAuditRepo struct {
	failures []models.AuditEvent
}

func (f *fakeAuditRepo) Create(event *models.AuditEvent) error { return nil }
func (f *fakeAuditRepo) ListByUser(userID uint, offset, limit int) ([]models.AuditEvent, error) {
	return nil, nil
}
func (f *fakeAuditRepo) CountByUser(userID uint) (int64, error) { return 0, nil }
func (f *fakeAuditRepo) GetFailedLoginsSince(since time.Time) ([]models.AuditEvent, error) {
	var out []models.AuditEvent
	for _, e := range f.failures {
		if !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeIncidentRepo struct {
	incidents []*models.SecurityIncident
	nextID    uint
}

func (f *fakeIncidentRepo) Create(incident *models.SecurityIncident) error {
	f.nextID++
	incident.ID = f.nextID
	f.incidents = append(f.incidents, incident)
	return nil
}

func (f *fakeIncidentRepo) GetByID(id uint) (*models.SecurityIncident, error) {
	for _, inc := range f.incidents {
		if inc.ID == id {
			return inc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIncidentRepo) GetActiveByTypeAndIP(incidentType, ip string) (*models.SecurityIncident, error) {
	for _, inc := range f.incidents {
		if inc.Type == incidentType && inc.IPAddress == ip && inc.Status == models.IncidentStatusActive {
			return inc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeIncidentRepo) List(offset, limit int) ([]models.SecurityIncident, error) {
	return nil, nil
}

func (f *fakeIncidentRepo) Update(incident *models.SecurityIncident) error { return nil }

func failedLogins(ip string, count int, at time.Time) []models.AuditEvent {
	events := make([]models.AuditEvent, 0, count)
	for i := 0; i < count; i++ {
		events = append(events, models.AuditEvent{
			Action:    models.AuditActionLoginFailed,
			IPAddress: ip,
			CreatedAt: at,
		})
	}
	return events
}

func newTestDetector(audit *fakeAuditRepo, incidents *fakeIncidentRepo, now time.Time) *Detector {
	d := NewDetector(audit, incidents)
	d.now = func() time.Time { return now }
	return d
}

func TestScanBelowThresholdNoIncident(t *testing.T) {
	now := time.Now()
	audit := &fakeAuditRepo{failures: failedLogins("10.0.0.1", BruteForceThreshold-1, now)}
	incidents := &fakeIncidentRepo{}

	result, err := newTestDetector(audit, incidents, now).Scan()
	assert.NoError(t, err)
	assert.Equal(t, BruteForceThreshold-1, result.ScannedEvents)
	assert.Zero(t, result.NewIncidents)
	assert.Empty(t, incidents.incidents)
}

func TestScanAtThresholdOpensIncident(t *testing.T) {
	now := time.Now()
	audit := &fakeAuditRepo{failures: failedLogins("10.0.0.1", BruteForceThreshold, now)}
	incidents := &fakeIncidentRepo{}

	result, err := newTestDetector(audit, incidents, now).Scan()
	assert.NoError(t, err)
	assert.Equal(t, 1, result.NewIncidents)
	assert.Len(t, incidents.incidents, 1)

	incident := incidents.incidents[0]
	assert.Equal(t, models.IncidentTypeBruteForce, incident.Type)
	assert.Equal(t, models.IncidentSeverityHigh, incident.Severity)
	assert.Equal(t, models.IncidentStatusActive, incident.Status)
	assert.Equal(t, "10.0.0.1", incident.IPAddress)
	assert.Equal(t, BruteForceThreshold, incident.FailureCount)
}

func TestScanPerIPIndependence(t *testing.T) {
	now := time.Now()
	events := failedLogins("10.0.0.1", BruteForceThreshold+2, now)
	events = append(events, failedLogins("10.0.0.2", BruteForceThreshold, now)...)
	events = append(events, failedLogins("10.0.0.3", 2, now)...)
	audit := &fakeAuditRepo{failures: events}
	incidents := &fakeIncidentRepo{}

	result, err := newTestDetector(audit, incidents, now).Scan()
	assert.NoError(t, err)
	assert.Equal(t, 2, result.SuspiciousIPs)
	assert.Equal(t, 2, result.NewIncidents)

	ips := []string{incidents.incidents[0].IPAddress, incidents.incidents[1].IPAddress}
	assert.ElementsMatch(t, []string{"10.0.0.1", "10.0.0.2"}, ips)
}

func TestScanIdempotentForActiveIncident(t *testing.T) {
	now := time.Now()
	audit := &fakeAuditRepo{failures: failedLogins("10.0.0.1", BruteForceThreshold, now)}
	incidents := &fakeIncidentRepo{}
	detector := newTestDetector(audit, incidents, now)

	first, err := detector.Scan()
	assert.NoError(t, err)
	assert.Equal(t, 1, first.NewIncidents)

	second, err := detector.Scan()
	assert.NoError(t, err)
	assert.Zero(t, second.NewIncidents)
	assert.Len(t, incidents.incidents, 1)
}

func TestScanRefreshesCountOnActiveIncident(t *testing.T) {
	now := time.Now()
	audit := &fakeAuditRepo{failures: failedLogins("10.0.0.1", BruteForceThreshold, now)}
	incidents := &fakeIncidentRepo{}
	detector := newTestDetector(audit, incidents, now)

	_, err := detector.Scan()
	assert.NoError(t, err)

	audit.failures = failedLogins("10.0.0.1", BruteForceThreshold+3, now)
	result, err := detector.Scan()
	assert.NoError(t, err)
	assert.Zero(t, result.NewIncidents)
	assert.Len(t, incidents.incidents, 1)
	assert.Equal(t, BruteForceThreshold+3, incidents.incidents[0].FailureCount)
}

func TestScanReopensAfterResolution(t *testing.T) {
	now := time.Now()
	audit := &fakeAuditRepo{failures: failedLogins("10.0.0.1", BruteForceThreshold, now)}
	incidents := &fakeIncidentRepo{}
	detector := newTestDetector(audit, incidents, now)

	_, err := detector.Scan()
	assert.NoError(t, err)

	_, err = detector.Resolve(incidents.incidents[0].ID)
	assert.NoError(t, err)

	result, err := detector.Scan()
	assert.NoError(t, err)
	assert.Equal(t, 1, result.NewIncidents)
	assert.Len(t, incidents.incidents, 2)
}

func TestScanIgnoresEventsOutsideWindow(t *testing.T) {
	now := time.Now()
	old := now.Add(-DetectionWindow - time.Minute)
	audit := &fakeAuditRepo{failures: failedLogins("10.0.0.1", BruteForceThreshold, old)}
	incidents := &fakeIncidentRepo{}

	result, err := newTestDetector(audit, incidents, now).Scan()
	assert.NoError(t, err)
	assert.Zero(t, result.ScannedEvents)
	assert.Empty(t, incidents.incidents)
}

func TestScanIgnoresEmptyIP(t *testing.T) {
	now := time.Now()
	audit := &fakeAuditRepo{failures: failedLogins("", BruteForceThreshold+3, now)}
	incidents := &fakeIncidentRepo{}

	result, err := newTestDetector(audit, incidents, now).Scan()
	assert.NoError(t, err)
	assert.Zero(t, result.NewIncidents)
}

func TestResolveIdempotent(t *testing.T) {
	now := time.Now()
	incidents := &fakeIncidentRepo{}
	detector := newTestDetector(&fakeAuditRepo{}, incidents, now)
	_ = incidents.Create(&models.SecurityIncident{
		Type:      models.IncidentTypeBruteForce,
		IPAddress: "10.0.0.1",
		Status:    models.IncidentStatusActive,
	})

	first, err := detector.Resolve(1)
	assert.NoError(t, err)
	assert.Equal(t, models.IncidentStatusResolved, first.Status)
	assert.NotNil(t, first.ResolvedAt)

	second, err := detector.Resolve(1)
	assert.NoError(t, err)
	assert.Equal(t, models.IncidentStatusResolved, second.Status)
}

func TestResolveUnknownIncident(t *testing.T) {
	detector := newTestDetector(&fakeAuditRepo{}, &fakeIncidentRepo{}, time.Now())

	_, err := detector.Resolve(99)
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}
