package dbclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"dsjson/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoStore keeps one collection per dataset. Documents carry _rownum;
// descriptors and label live in the catalog collection keyed by dataset name.
type mongoStore struct {
	client *mongo.Client
	dbName string
}

// catalogEntry is a dataset's document in the catalog collection.
type catalogEntry struct {
	Name    string          `bson:"_id"`
	Label   string          `bson:"label"`
	Columns []catalogColumn `bson:"columns"`
}

type catalogColumn struct {
	Name     string `bson:"name"`
	Type     int    `bson:"type"`
	Length   int    `bson:"length"`
	Format   string `bson:"format"`
	Informat string `bson:"informat"`
	Label    string `bson:"label"`
	Varnum   int    `bson:"varnum"`
}

func newMongoStore(conn *domain.DatabaseConnection, password string) (*mongoStore, error) {
	uri := mongoURI(conn, password)

	dbName := conn.Database
	if dbName == "" {
		dbName = databaseFromURI(uri)
	}
	if dbName == "" {
		dbName = "test"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoStore{client: client, dbName: dbName}, nil
}

// mongoURI uses Host as is when it already is a connection string,
// otherwise builds one from host and port.
func mongoURI(conn *domain.DatabaseConnection, password string) string {
	if strings.HasPrefix(conn.Host, "mongodb+srv://") || strings.HasPrefix(conn.Host, "mongodb://") {
		uri := conn.Host
		if password == "" {
			return uri
		}
		// Atlas connection strings ship with a placeholder
		if strings.Contains(uri, "<password>") || strings.Contains(uri, "<db_password>") {
			uri = strings.ReplaceAll(uri, "<password>", url.QueryEscape(password))
			return strings.ReplaceAll(uri, "<db_password>", url.QueryEscape(password))
		}
		if u, err := url.Parse(uri); err == nil && u.User != nil {
			if _, set := u.User.Password(); !set {
				u.User = url.UserPassword(u.User.Username(), password)
				return u.String()
			}
		}
		return uri
	}

	port := conn.Port
	if port == 0 {
		port = 27017
	}
	u := url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%d", conn.Host, port), Path: "/" + conn.Database}
	if conn.Username != "" {
		u.User = url.UserPassword(conn.Username, password)
	}
	if len(conn.Params) > 0 {
		q := url.Values{}
		for k, v := range conn.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// databaseFromURI extracts the path segment of user:pass@host/DB?params.
func databaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		rest = strings.TrimPrefix(rest, prefix)
	}
	if at := strings.LastIndex(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return ""
	}
	path := rest[slash+1:]
	if q := strings.Index(path, "?"); q != -1 {
		path = path[:q]
	}
	return path
}

func (m *mongoStore) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

func (m *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *mongoStore) db() *mongo.Database {
	return m.client.Database(m.dbName)
}

// ── Catalog ───────────────────────────────────────────────

func (m *mongoStore) catalog(ctx context.Context, name string) (*catalogEntry, error) {
	var entry catalogEntry
	err := m.db().Collection(catalogMongo).FindOne(ctx, bson.M{"_id": name}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog of %s: %w", name, err)
	}
	return &entry, nil
}

func (m *mongoStore) DatasetLabel(ctx context.Context, name string) (string, error) {
	entry, err := m.catalog(ctx, name)
	if err != nil || entry == nil {
		return "", err
	}
	return entry.Label, nil
}

func (m *mongoStore) ListDatasets(ctx context.Context) ([]string, error) {
	cursor, err := m.db().Collection(catalogMongo).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer cursor.Close(ctx)

	var names []string
	for cursor.Next(ctx) {
		var entry catalogEntry
		if err := cursor.Decode(&entry); err != nil {
			return nil, fmt.Errorf("decode catalog entry: %w", err)
		}
		names = append(names, entry.Name)
	}
	return names, cursor.Err()
}

// ── Read ──────────────────────────────────────────────────

func (m *mongoStore) ReadDataset(ctx context.Context, name string) (*domain.Dataset, error) {
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	entry, err := m.catalog(ctx, name)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		existing, err := m.db().ListCollectionNames(ctx, bson.M{"name": name})
		if err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		if len(existing) == 0 {
			return nil, fmt.Errorf("collection %s: %w", name, domain.ErrDatasetNotFound)
		}
	}

	cursor, err := m.db().Collection(name).Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: mongoRownum, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.D
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		docs = append(docs, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	ds := &domain.Dataset{Name: name, Rows: make([]domain.Row, 0, len(docs))}
	inferred := entry == nil
	if inferred {
		ds.Columns = inferColumns(docs)
	} else {
		ds.Label = entry.Label
		for _, c := range entry.Columns {
			ds.Columns = append(ds.Columns, domain.Column{
				Name: c.Name, Type: domain.ColumnType(c.Type), Length: c.Length,
				Format: c.Format, Informat: c.Informat, Label: c.Label, Varnum: c.Varnum,
			})
		}
	}

	for _, doc := range docs {
		fields := make(map[string]any, len(doc))
		for _, elem := range doc {
			fields[elem.Key] = elem.Value
		}
		row := make(domain.Row, len(ds.Columns))
		for _, c := range ds.Columns {
			row[c.Name] = domain.CellValue(c, fields[c.Name])
		}
		ds.Rows = append(ds.Rows, row)
	}

	if inferred {
		for i, c := range ds.Columns {
			if !c.IsNumeric() {
				ds.FitLength(i)
			}
		}
	}
	return ds, nil
}

// inferColumns takes field order from first appearance and the type from
// the first non-null value of each field.
func inferColumns(docs []bson.D) []domain.Column {
	var cols []domain.Column
	index := map[string]int{}
	typed := map[string]bool{}
	for _, doc := range docs {
		for _, elem := range doc {
			if elem.Key == "_id" || elem.Key == mongoRownum {
				continue
			}
			i, seen := index[elem.Key]
			if !seen {
				i = len(cols)
				index[elem.Key] = i
				cols = append(cols, domain.Column{Name: elem.Key, Type: domain.ColumnCharacter, Varnum: i + 1})
			}
			if elem.Value == nil || typed[elem.Key] {
				continue
			}
			typed[elem.Key] = true
			switch elem.Value.(type) {
			case int32, int64, float64, bool:
				cols[i].Type = domain.ColumnNumeric
				cols[i].Length = domain.DefaultNumericLength
			}
		}
	}
	return cols
}

// ── Write ─────────────────────────────────────────────────

// WriteDataset drops and refills the collection, then upserts the catalog entry.
func (m *mongoStore) WriteDataset(ctx context.Context, ds *domain.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	if err := checkReserved(ds, "_id", mongoRownum); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	coll := m.db().Collection(ds.Name)
	if err := coll.Drop(ctx); err != nil {
		return fmt.Errorf("drop %s: %w", ds.Name, err)
	}

	if len(ds.Rows) > 0 {
		docs := make([]bson.D, 0, len(ds.Rows))
		for i, row := range ds.Rows {
			doc := bson.D{{Key: mongoRownum, Value: int64(i + 1)}}
			for _, c := range ds.Columns {
				doc = append(doc, bson.E{Key: c.Name, Value: domain.CellValue(c, row[c.Name])})
			}
			docs = append(docs, doc)
		}
		if _, err := coll.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert into %s: %w", ds.Name, err)
		}
	}

	entry := catalogEntry{Name: ds.Name, Label: ds.Label}
	for i, c := range ds.Columns {
		varnum := c.Varnum
		if varnum <= 0 {
			varnum = i + 1
		}
		entry.Columns = append(entry.Columns, catalogColumn{
			Name: c.Name, Type: int(c.Type), Length: c.Length,
			Format: c.Format, Informat: c.Informat, Label: c.Label, Varnum: varnum,
		})
	}
	_, err := m.db().Collection(catalogMongo).ReplaceOne(ctx, bson.M{"_id": ds.Name}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("record catalog of %s: %w", ds.Name, err)
	}
	return nil
}
