package mapper

import (
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/recordstore"
)

// AppIntegrationRecord is the wire shape of an app_integration_c row.
type AppIntegrationRecord struct {
	ID          *int64
	Name        *string
	Icon        *string
	Category    *string
	Description *string
	Color       *string
	Triggers    *string
	Actions     *string
	AuthType    *string
}

func (*AppIntegrationRecord) Kind() Kind { return KindAppIntegration }

func (*AppIntegrationRecord) Table() string { return recordstore.TableAppIntegration }

// Record returns the present fields as a store record.
func (r *AppIntegrationRecord) Record() recordstore.Record {
	w := writer{}
	w.set(recordstore.IDField, r.ID)
	w.set(recordstore.ColName, r.Name)
	w.set(recordstore.ColIcon, r.Icon)
	w.set(recordstore.ColCategory, r.Category)
	w.set(recordstore.ColDescription, r.Description)
	w.set(recordstore.ColColor, r.Color)
	w.set(recordstore.ColTriggers, r.Triggers)
	w.set(recordstore.ColActions, r.Actions)
	w.set(recordstore.ColAuthType, r.AuthType)

	return recordstore.Record(w)
}

// DecodeAppIntegrationRecord reads an app_integration_c row.
func DecodeAppIntegrationRecord(record recordstore.Record) (*AppIntegrationRecord, error) {
	r := newReader(recordstore.TableAppIntegration, record)

	wire := &AppIntegrationRecord{
		ID:          r.integer(recordstore.IDField),
		Name:        r.text(recordstore.ColName),
		Icon:        r.text(recordstore.ColIcon),
		Category:    r.text(recordstore.ColCategory),
		Description: r.text(recordstore.ColDescription),
		Color:       r.text(recordstore.ColColor),
		Triggers:    r.text(recordstore.ColTriggers),
		Actions:     r.text(recordstore.ColActions),
		AuthType:    r.text(recordstore.ColAuthType),
	}

	if r.err != nil {
		return nil, r.err
	}

	return wire, nil
}

// AppIntegrationToDomain converts a wire record, defaulting absent fields.
func AppIntegrationToDomain(r *AppIntegrationRecord) (*models.AppIntegration, error) {
	d := &decoder{table: recordstore.TableAppIntegration, id: deref(r.ID)}

	app := &models.AppIntegration{
		ID:          deref(r.ID),
		Name:        deref(r.Name),
		Icon:        deref(r.Icon),
		Category:    deref(r.Category),
		Description: deref(r.Description),
		Color:       deref(r.Color),
		AuthType:    deref(r.AuthType),
	}

	d.blob(recordstore.ColTriggers, r.Triggers, &app.Triggers)
	d.blob(recordstore.ColActions, r.Actions, &app.Actions)

	if d.err != nil {
		return nil, d.err
	}

	app.Triggers = nonNil(app.Triggers)
	app.Actions = nonNil(app.Actions)

	return app, nil
}

// AppIntegrationToWire converts an app integration.
func AppIntegrationToWire(app *models.AppIntegration) (*AppIntegrationRecord, error) {
	triggers, err := marshal(nonNil(app.Triggers))
	if err != nil {
		return nil, err
	}

	actions, err := marshal(nonNil(app.Actions))
	if err != nil {
		return nil, err
	}

	return &AppIntegrationRecord{
		ID:          idPtr(app.ID),
		Name:        ptr(app.Name),
		Icon:        ptr(app.Icon),
		Category:    ptr(app.Category),
		Description: ptr(app.Description),
		Color:       ptr(app.Color),
		Triggers:    triggers,
		Actions:     actions,
		AuthType:    ptr(app.AuthType),
	}, nil
}

// DecodeAppIntegration converts a store record straight to an app integration.
func DecodeAppIntegration(record recordstore.Record) (*models.AppIntegration, error) {
	wire, err := DecodeAppIntegrationRecord(record)
	if err != nil {
		return nil, err
	}

	return AppIntegrationToDomain(wire)
}

// TemplateRecord is the wire shape of a template_c row.
type TemplateRecord struct {
	ID          *int64
	Name        *string
	Description *string
	Category    *string
	Icon        *string
	UsageCount  *int64
	Apps        *string
	Nodes       *string
}

func (*TemplateRecord) Kind() Kind { return KindTemplate }

func (*TemplateRecord) Table() string { return recordstore.TableTemplate }

// Record returns the present fields as a store record.
func (r *TemplateRecord) Record() recordstore.Record {
	w := writer{}
	w.set(recordstore.IDField, r.ID)
	w.set(recordstore.ColName, r.Name)
	w.set(recordstore.ColDescription, r.Description)
	w.set(recordstore.ColCategory, r.Category)
	w.set(recordstore.ColIcon, r.Icon)
	w.set(recordstore.ColUsageCount, r.UsageCount)
	w.set(recordstore.ColApps, r.Apps)
	w.set(recordstore.ColNodes, r.Nodes)

	return recordstore.Record(w)
}

// DecodeTemplateRecord reads a template_c row.
func DecodeTemplateRecord(record recordstore.Record) (*TemplateRecord, error) {
	r := newReader(recordstore.TableTemplate, record)

	wire := &TemplateRecord{
		ID:          r.integer(recordstore.IDField),
		Name:        r.text(recordstore.ColName),
		Description: r.text(recordstore.ColDescription),
		Category:    r.text(recordstore.ColCategory),
		Icon:        r.text(recordstore.ColIcon),
		UsageCount:  r.integer(recordstore.ColUsageCount),
		Apps:        r.text(recordstore.ColApps),
		Nodes:       r.text(recordstore.ColNodes),
	}

	if r.err != nil {
		return nil, r.err
	}

	return wire, nil
}

// TemplateToDomain converts a wire record, defaulting absent fields.
func TemplateToDomain(r *TemplateRecord) (*models.Template, error) {
	d := &decoder{table: recordstore.TableTemplate, id: deref(r.ID)}

	template := &models.Template{
		ID:          deref(r.ID),
		Name:        deref(r.Name),
		Description: deref(r.Description),
		Category:    deref(r.Category),
		Icon:        deref(r.Icon),
		UsageCount:  int(deref(r.UsageCount)),
	}

	d.blob(recordstore.ColApps, r.Apps, &template.Apps)
	d.blob(recordstore.ColNodes, r.Nodes, &template.Nodes)

	if d.err != nil {
		return nil, d.err
	}

	template.Apps = nonNil(template.Apps)
	template.Nodes = nonNil(template.Nodes)

	return template, nil
}

// TemplateToWire converts a template.
func TemplateToWire(t *models.Template) (*TemplateRecord, error) {
	apps, err := marshal(nonNil(t.Apps))
	if err != nil {
		return nil, err
	}

	nodes, err := marshal(nonNil(t.Nodes))
	if err != nil {
		return nil, err
	}

	return &TemplateRecord{
		ID:          idPtr(t.ID),
		Name:        ptr(t.Name),
		Description: ptr(t.Description),
		Category:    ptr(t.Category),
		Icon:        ptr(t.Icon),
		UsageCount:  ptr(int64(t.UsageCount)),
		Apps:        apps,
		Nodes:       nodes,
	}, nil
}

// DecodeTemplate converts a store record straight to a template.
func DecodeTemplate(record recordstore.Record) (*models.Template, error) {
	wire, err := DecodeTemplateRecord(record)
	if err != nil {
		return nil, err
	}

	return TemplateToDomain(wire)
}
