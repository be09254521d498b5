package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/icrowley/fake"
	"go.uber.org/zap"

	"godsendjoseph.dev/mail-wizard/internal/models"
	"godsendjoseph.dev/mail-wizard/internal/store"
)

// InvoiceActionID is the wizard action the seeded template is linked to.
const InvoiceActionID = 1

func Seed(storage store.Storage, db *sql.DB, logger *zap.SugaredLogger) error {
	ctx := context.Background()

	users := generateUsers(10)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range users {
		if err := storage.Users.Create(ctx, tx, &users[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("error creating user: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing users: %w", err)
	}
	logger.Infow("seeded users", "count", len(users))

	customers, err := seedCustomers(ctx, db, 25)
	if err != nil {
		return err
	}
	logger.Infow("seeded customers", "count", customers)

	tmpl := invoiceTemplate()
	if err := storage.Templates.Create(ctx, tmpl); err != nil {
		return fmt.Errorf("error creating template: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO template_translations (template_id, lang, field, value) VALUES (?, 'es', 'subject', ?), (?, 'es', 'plain', ?)`,
		tmpl.ID, `Factura ${record["number"]}`,
		tmpl.ID, `Hola ${record["name"]},`+"\n\n"+`adjuntamos la factura ${record["number"]}.`,
	); err != nil {
		return fmt.Errorf("error creating translations: %w", err)
	}
	logger.Infow("seeded template", "template_id", tmpl.ID, "action_id", tmpl.ActionID)

	logger.Info("seeding complete")
	return nil
}

func seedCustomers(ctx context.Context, db *sql.DB, n int) (int, error) {
	if _, err := db.ExecContext(ctx,
		`INSERT IGNORE INTO record_models (model, table_name) VALUES ('customers', 'customers')`,
	); err != nil {
		return 0, err
	}

	languages := []string{"en", "es"}
	for i := 0; i < n; i++ {
		_, err := db.ExecContext(ctx,
			`INSERT INTO customers (name, email, number, amount, lang) VALUES (?, ?, ?, ?, ?)`,
			fake.FullName(),
			strings.ToLower(fake.EmailAddress()),
			fmt.Sprintf("INV-%05d", i+1),
			fmt.Sprintf("%d.%02d", 10+i*7, i%100),
			languages[i%len(languages)],
		)
		if err != nil {
			return i, fmt.Errorf("error creating customer: %w", err)
		}
	}

	return n, nil
}

func invoiceTemplate() *models.Template {
	return &models.Template{
		Name:      "Invoice",
		Model:     "customers",
		From:      "Billing <billing@example.com>",
		To:        `${record["name"]} <${record["email"]}>`,
		Subject:   `Invoice ${record["number"]}`,
		Plain:     `Hello ${record["name"]},` + "\n\n" + `please find invoice ${record["number"]} attached.`,
		HTML:      `<p>Hello ${record["name"]},</p><p>please find invoice <b>${record["number"]}</b> attached.</p>`,
		Language:  `${record["lang"]}`,
		Signature: true,
		MailboxID: 1,
		ActionID:  InvoiceActionID,
		Active:    true,
		Reports: []models.Report{{
			Name:      "invoice",
			Extension: "txt",
			Body:      "Invoice {{.Record.number}}\nCustomer: {{.Record.name}}\nAmount: {{.Record.amount}}\n",
			FileName:  `invoice-${record["number"]}`,
		}},
	}
}

func generateUsers(num int) []models.User {
	users := make([]models.User, num)

	for i := 0; i < num; i++ {
		var pwd models.PasswordHash
		if err := pwd.Set("password"); err != nil {
			panic(err)
		}

		role := models.RoleSender
		if i == 0 {
			role = models.RoleAdmin
		} else if i%3 == 0 {
			role = models.RoleViewer
		}

		name := fake.FirstName()
		users[i] = models.User{
			Username:  fmt.Sprintf("%s%d", strings.ToLower(fake.UserName()), i),
			Email:     strings.ToLower(fake.EmailAddress()),
			Language:  "en",
			Signature: name + "\n" + fake.Company(),
			IsActive:  true,
			Role:      models.Role{Name: role},
			Password:  pwd,
		}
	}

	return users
}
