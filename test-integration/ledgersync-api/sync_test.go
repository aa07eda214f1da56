package integration

import (
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/stacklok/ledgersync/internal/api/v1"
	"github.com/stacklok/ledgersync/internal/status"
	"github.com/stacklok/ledgersync/test-integration/ledgersync-api/helpers"
)

var _ = Describe("Incremental sync", Label("sync"), func() {
	var (
		tempDir      string
		provider     *helpers.FakeProvider
		serverHelper *helpers.ServerTestHelper
	)

	BeforeEach(func() {
		tempDir = createTempDir("ledgersync-test-")
		provider = helpers.NewFakeProvider()
		provider.SetAccounts(helpers.Account("acc-1", "Checking", 120.5))

		configFile := helpers.WriteConfigYAML(tempDir, provider.URL(),
			helpers.ConnectionEntry{ID: "conn-1"},
			helpers.ConnectionEntry{ID: "conn-2"},
			helpers.ConnectionEntry{ID: "conn-off", Inactive: true},
		)

		var err error
		serverHelper, err = helpers.NewServerTestHelper(ctx, configFile)
		Expect(err).NotTo(HaveOccurred())
		Expect(serverHelper.StartServer()).To(Succeed())
		serverHelper.WaitForServerReady(10 * time.Second)
	})

	AfterEach(func() {
		Expect(serverHelper.StopServer()).To(Succeed())
		provider.Close()
		cleanupTempDir(tempDir)
	})

	Context("first run", func() {
		It("refreshes accounts and drains every page", func() {
			provider.SetPage("", helpers.Page{
				Added:      []map[string]any{helpers.Transaction("t1", "acc-1", 4.5, "Coffee")},
				NextCursor: "c1",
				HasMore:    true,
			})
			provider.SetPage("c1", helpers.Page{
				Added:      []map[string]any{helpers.Transaction("t2", "acc-1", 60, "Groceries")},
				NextCursor: "c2",
			})

			result := serverHelper.MustSync("conn-1")
			Expect(result.Status).To(Equal(v1.ResultCompleted))
			Expect(result.Added).To(Equal(2))
			Expect(result.Pages).To(Equal(2))
			Expect(provider.Cursors()).To(Equal([]string{"", "c1"}))

			resp, err := serverHelper.Get("/v1/connections/conn-1/accounts")
			Expect(err).NotTo(HaveOccurred())
			var accounts v1.AccountListResponse
			helpers.DecodeJSON(resp, http.StatusOK, &accounts)
			Expect(accounts.Count).To(Equal(1))
			Expect(accounts.Accounts[0].ExternalID).To(Equal("acc-1"))

			resp, err = serverHelper.Get("/v1/connections/conn-1/transactions")
			Expect(err).NotTo(HaveOccurred())
			var txns v1.TransactionListResponse
			helpers.DecodeJSON(resp, http.StatusOK, &txns)
			Expect(txns.Count).To(Equal(2))
		})
	})

	Context("subsequent runs", func() {
		BeforeEach(func() {
			provider.SetPage("", helpers.Page{
				Added: []map[string]any{
					helpers.Transaction("t1", "acc-1", 4.5, "Coffee"),
					helpers.Transaction("t2", "acc-1", 60, "Groceries"),
				},
				NextCursor: "c1",
			})
			Expect(serverHelper.MustSync("conn-1").Status).To(Equal(v1.ResultCompleted))
		})

		It("resumes from the committed cursor and applies removals and modifications", func() {
			modified := helpers.Transaction("t2", "acc-1", 62.25, "Groceries")
			provider.SetPage("c1", helpers.Page{
				Modified:   []map[string]any{modified},
				Removed:    []map[string]any{helpers.Removed("t1")},
				NextCursor: "c2",
			})

			result := serverHelper.MustSync("conn-1")
			Expect(result.Status).To(Equal(v1.ResultCompleted))
			Expect(result.Modified).To(Equal(1))
			Expect(result.Removed).To(Equal(1))
			Expect(provider.Cursors()).To(Equal([]string{"", "c1"}))

			resp, err := serverHelper.Get("/v1/connections/conn-1/transactions")
			Expect(err).NotTo(HaveOccurred())
			var txns v1.TransactionListResponse
			helpers.DecodeJSON(resp, http.StatusOK, &txns)
			Expect(txns.Count).To(Equal(1))
			Expect(txns.Transactions[0].ExternalID).To(Equal("t2"))
			Expect(txns.Transactions[0].Amount.String()).To(Equal("62.25"))
		})

		It("is a no-op when the provider has nothing new", func() {
			result := serverHelper.MustSync("conn-1")
			Expect(result.Status).To(Equal(v1.ResultCompleted))
			Expect(result.Added + result.Modified + result.Removed).To(BeZero())
		})
	})

	Context("failures", func() {
		It("reports a provider outage after retries and keeps the cursor", func() {
			body := `{"error_type":"API_ERROR","error_code":"INTERNAL_SERVER_ERROR"}`
			provider.FailNext(
				helpers.Failure{Status: http.StatusInternalServerError, Body: body},
				helpers.Failure{Status: http.StatusInternalServerError, Body: body},
			)

			result := serverHelper.MustSync("conn-1")
			Expect(result.Status).To(Equal(v1.ResultFailed))
			Expect(result.Error).NotTo(BeNil())
			Expect(result.Error.Kind).To(Equal("ProviderUnavailable"))
			Expect(result.Error.Committed).To(BeFalse())

			resp, err := serverHelper.Get("/v1/connections/conn-1/status")
			Expect(err).NotTo(HaveOccurred())
			var st status.SyncStatus
			helpers.DecodeJSON(resp, http.StatusOK, &st)
			Expect(st.Phase).To(Equal(status.SyncPhaseFailed))
			Expect(st.ErrorKind).To(Equal("ProviderUnavailable"))
		})

		It("rejects a revoked access token without retrying", func() {
			provider.FailNext(helpers.Failure{
				Status: http.StatusBadRequest,
				Body:   `{"error_type":"ITEM_ERROR","error_code":"ITEM_LOGIN_REQUIRED"}`,
			})

			result := serverHelper.MustSync("conn-1")
			Expect(result.Status).To(Equal(v1.ResultFailed))
			Expect(result.Error.Kind).To(Equal("ProviderRejected"))
		})

		It("returns 404 for unknown and inactive connections", func() {
			for _, id := range []string{"missing", "conn-off"} {
				resp, err := serverHelper.SyncConnection(id)
				Expect(err).NotTo(HaveOccurred())
				_ = resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound), id)
			}
		})
	})

	Context("fan-out", func() {
		It("syncs every active connection independently", func() {
			provider.SetPage("", helpers.Page{
				Added:      []map[string]any{helpers.Transaction("t1", "acc-1", 4.5, "Coffee")},
				NextCursor: "c1",
			})

			resp, err := serverHelper.SyncAll()
			Expect(err).NotTo(HaveOccurred())
			var summary v1.SyncAllResponse
			helpers.DecodeJSON(resp, http.StatusOK, &summary)

			Expect(summary.Results).To(HaveLen(2))
			Expect(summary.Completed).To(Equal(2))
			ids := []string{summary.Results[0].ConnectionID, summary.Results[1].ConnectionID}
			Expect(ids).To(ConsistOf("conn-1", "conn-2"))
		})
	})

	Context("deactivation", func() {
		It("stops syncing the connection and keeps its ledger", func() {
			provider.SetPage("", helpers.Page{
				Added:      []map[string]any{helpers.Transaction("t1", "acc-1", 4.5, "Coffee")},
				NextCursor: "c1",
			})
			Expect(serverHelper.MustSync("conn-1").Status).To(Equal(v1.ResultCompleted))

			resp, err := serverHelper.Deactivate("conn-1")
			Expect(err).NotTo(HaveOccurred())
			var conn v1.ConnectionResponse
			helpers.DecodeJSON(resp, http.StatusOK, &conn)
			Expect(conn.Active).To(BeFalse())

			resp, err = serverHelper.SyncConnection("conn-1")
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			resp, err = serverHelper.SyncAll()
			Expect(err).NotTo(HaveOccurred())
			var summary v1.SyncAllResponse
			helpers.DecodeJSON(resp, http.StatusOK, &summary)
			Expect(summary.Results).To(HaveLen(1))
			Expect(summary.Results[0].ConnectionID).To(Equal("conn-2"))

			resp, err = serverHelper.Get("/v1/connections/conn-1/transactions")
			Expect(err).NotTo(HaveOccurred())
			var txns v1.TransactionListResponse
			helpers.DecodeJSON(resp, http.StatusOK, &txns)
			Expect(txns.Count).To(Equal(1))
		})

		It("returns 404 for an unknown connection", func() {
			resp, err := serverHelper.Deactivate("missing")
			Expect(err).NotTo(HaveOccurred())
			_ = resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})
	})
})
