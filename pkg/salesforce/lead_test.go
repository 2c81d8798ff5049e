package salesforce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLead_Fields(t *testing.T) {
	l := Lead{
		FirstName:         "Asha",
		LastName:          "Rao",
		Company:           "Acme",
		Title:             "CEO, Founder",
		NumberOfEmployees: 120,
		LeadSource:        "LinkedIn",
		ProfileURL:        "https://www.linkedin.com/in/asha",
	}

	got := l.Fields("LinkedIn_Profile__c", nil)
	assert.Equal(t, map[string]any{
		"FirstName":           "Asha",
		"LastName":            "Rao",
		"Company":             "Acme",
		"Title":               "CEO, Founder",
		"LeadSource":          "LinkedIn",
		"NumberOfEmployees":   120,
		"LinkedIn_Profile__c": "https://www.linkedin.com/in/asha",
	}, got)

	allowed := map[string]bool{"LastName": true, "Company": true}
	assert.Equal(t, map[string]any{"LastName": "Rao", "Company": "Acme"}, l.Fields("LinkedIn_Profile__c", allowed))

	assert.NotContains(t, l.Fields("", nil), "LinkedIn_Profile__c")
}

func TestWritableLeadFields(t *testing.T) {
	m := &mockClient{
		describeSObjectFn: func(_ context.Context, name string) (*SObjectDescription, error) {
			assert.Equal(t, "Lead", name)
			return &SObjectDescription{Name: name, Fields: []SObjectField{
				{Name: "Id"},
				{Name: "Company", Createable: true, Updateable: true},
				{Name: "CreatedDate", Createable: false, Updateable: false},
				{Name: "LinkedIn_Profile__c", Createable: true, Updateable: true},
			}}, nil
		},
	}
	got, err := WritableLeadFields(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"Company": true, "LinkedIn_Profile__c": true}, got)

	m.describeSObjectFn = func(context.Context, string) (*SObjectDescription, error) {
		return nil, errors.New("boom")
	}
	_, err = WritableLeadFields(context.Background(), m)
	assert.Error(t, err)
}

func TestFindLeadsByProfile(t *testing.T) {
	urls := make([]string, 150)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://www.linkedin.com/in/p%d", i)
	}
	urls[3] = "https://www.linkedin.com/in/o'brien"

	var queries []string
	m := &mockClient{
		queryFn: func(_ context.Context, soql string, out any) error {
			queries = append(queries, soql)
			records := out.(*[]map[string]any)
			if len(queries) == 1 {
				*records = []map[string]any{
					{"Id": "00Q1", "LinkedIn_Profile__c": urls[0]},
					{"Id": "", "LinkedIn_Profile__c": urls[1]},
				}
			}
			return nil
		},
	}

	found, err := FindLeadsByProfile(context.Background(), m, "LinkedIn_Profile__c", urls)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{urls[0]: "00Q1"}, found)
	require.Len(t, queries, 2)
	assert.True(t, strings.HasPrefix(queries[0], "SELECT Id, LinkedIn_Profile__c FROM Lead WHERE LinkedIn_Profile__c IN ("))
	assert.Contains(t, queries[0], `'https://www.linkedin.com/in/o\'brien'`)
	assert.Equal(t, 100, strings.Count(queries[0], "'https://"))
	assert.Equal(t, 50, strings.Count(queries[1], "'https://"))
}

func TestFindLeadsByProfile_NoField(t *testing.T) {
	m := &mockClient{queryFn: func(context.Context, string, any) error {
		t.Fatal("query must not run without a profile field")
		return nil
	}}
	found, err := FindLeadsByProfile(context.Background(), m, "", []string{"u"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestBulkInsertLeads_Batches(t *testing.T) {
	var sizes []int
	m := &mockClient{
		insertCollectionFn: func(_ context.Context, sObject string, records []map[string]any) ([]CollectionResult, error) {
			assert.Equal(t, "Lead", sObject)
			sizes = append(sizes, len(records))
			results := make([]CollectionResult, len(records))
			for i := range results {
				results[i] = CollectionResult{Success: true}
			}
			return results, nil
		},
	}

	records := make([]map[string]any, 450)
	for i := range records {
		records[i] = map[string]any{"LastName": "x"}
	}
	results, err := BulkInsertLeads(context.Background(), m, records)
	require.NoError(t, err)
	assert.Len(t, results, 450)
	assert.Equal(t, []int{200, 200, 50}, sizes)

	results, err = BulkInsertLeads(context.Background(), m, nil)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestBulkInsertLeads_ErrorKeepsEarlierResults(t *testing.T) {
	calls := 0
	m := &mockClient{
		insertCollectionFn: func(_ context.Context, _ string, records []map[string]any) ([]CollectionResult, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("api limit")
			}
			return make([]CollectionResult, len(records)), nil
		},
	}
	results, err := BulkInsertLeads(context.Background(), m, make([]map[string]any, 300))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 200-300")
	assert.Len(t, results, 200)
}

func TestBulkUpdateLeads(t *testing.T) {
	var sizes []int
	m := &mockClient{
		updateCollectionFn: func(_ context.Context, sObject string, records []CollectionRecord) ([]CollectionResult, error) {
			assert.Equal(t, "Lead", sObject)
			sizes = append(sizes, len(records))
			return make([]CollectionResult, len(records)), nil
		},
	}
	results, err := BulkUpdateLeads(context.Background(), m, make([]CollectionRecord, 201))
	require.NoError(t, err)
	assert.Len(t, results, 201)
	assert.Equal(t, []int{200, 1}, sizes)
}

func TestEscapeSoql(t *testing.T) {
	assert.Equal(t, `o\'brien`, escapeSoql("o'brien"))
	assert.Equal(t, `a\\b`, escapeSoql(`a\b`))
}
