package data

// Page is one bounded batch of records from a single paged query call.
// TotalRecords is the backend's count of all records matching the query,
// Count the number carried by this page.
type Page struct {
	TotalRecords int64
	Count        int64
	Records      []Record
}

// ResultSet accumulates pages in arrival order. It grows monotonically
// during one export and is discarded after serialization.
type ResultSet struct {
	records []Record
}

func (s *ResultSet) Append(page *Page) {
	s.records = append(s.records, page.Records...)
}

func (s *ResultSet) Len() int {
	return len(s.records)
}

func (s *ResultSet) Empty() bool {
	return len(s.records) == 0
}

func (s *ResultSet) Records() []Record {
	return s.records
}
