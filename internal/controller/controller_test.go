package controller_test

import (
	"context"
	"errors"
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"revot.app/chat/internal/controller"
	"revot.app/chat/internal/model"
	"revot.app/chat/internal/reply"
)

var _ = Describe("Controller", func() {
	var (
		ctx      context.Context
		sessions *mockSessionStore
		history  *mockHistoryStore
		replies  *mockReplyGateway
		ctrl     *controller.Controller
		user     *model.User
	)

	newController := func(opts ...controller.Option) *controller.Controller {
		opts = append([]controller.Option{controller.WithClock(testClock(1000))}, opts...)
		return controller.New(sessions, history, replies, opts...)
	}

	ascendingByID := func(messages []model.Message) bool {
		return sort.SliceIsSorted(messages, func(i, j int) bool {
			return messages[i].ID < messages[j].ID
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		sessions = &mockSessionStore{}
		history = &mockHistoryStore{}
		replies = &mockReplyGateway{}
		user = &model.User{ID: "user-1", Email: "ana@example.com"}

		ctrl = newController()
		ctrl.SetUser(user)
	})

	Describe("RefreshSessions", func() {
		It("replaces the list with the store's newest-first ordering", func() {
			sessions.listFn = func(_ context.Context, userID string) ([]model.ChatSession, error) {
				Expect(userID).To(Equal("user-1"))
				return []model.ChatSession{
					{ID: 2, UserID: userID, Title: "segunda"},
					{ID: 1, UserID: userID, Title: "primera"},
				}, nil
			}

			list := ctrl.RefreshSessions(ctx)

			Expect(list).To(HaveLen(2))
			Expect(list[0].ID).To(Equal(int64(2)))
			Expect(ctrl.Sessions()).To(Equal(list))
		})

		It("leaves the prior list untouched when the store fails", func() {
			sessions.listFn = func(_ context.Context, userID string) ([]model.ChatSession, error) {
				return []model.ChatSession{{ID: 7, UserID: userID, Title: "antes"}}, nil
			}
			ctrl.RefreshSessions(ctx)

			sessions.listFn = func(_ context.Context, _ string) ([]model.ChatSession, error) {
				return nil, errors.New("store unavailable")
			}
			list := ctrl.RefreshSessions(ctx)

			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal(int64(7)))
		})

		It("returns nothing when no user is signed in", func() {
			ctrl.SetUser(nil)
			Expect(ctrl.RefreshSessions(ctx)).To(BeEmpty())
		})
	})

	Describe("CreateSession", func() {
		It("prepends the new session and selects it", func() {
			sessions.listFn = func(_ context.Context, userID string) ([]model.ChatSession, error) {
				return []model.ChatSession{{ID: 1, UserID: userID, Title: "vieja"}}, nil
			}
			ctrl.RefreshSessions(ctx)

			sessions.createFn = func(_ context.Context, userID string) (*model.ChatSession, error) {
				return &model.ChatSession{ID: 9, UserID: userID, Title: "Nuevo Chat", CreatedAt: time.Now()}, nil
			}

			cs, err := ctrl.CreateSession(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(cs.ID).To(Equal(int64(9)))
			Expect(ctrl.Sessions()[0].ID).To(Equal(int64(9)))
			Expect(ctrl.Sessions()).To(HaveLen(2))
			Expect(ctrl.CurrentSessionID()).To(Equal(int64(9)))
			Expect(ctrl.Messages()).To(BeEmpty())
		})

		It("applies no local change when the store rejects the create", func() {
			sessions.createFn = func(_ context.Context, _ string) (*model.ChatSession, error) {
				return nil, errors.New("insert failed")
			}

			_, err := ctrl.CreateSession(ctx)

			Expect(err).To(HaveOccurred())
			Expect(ctrl.Sessions()).To(BeEmpty())
			Expect(ctrl.CurrentSessionID()).To(BeZero())
		})

		It("requires a signed-in user", func() {
			ctrl.SetUser(nil)
			_, err := ctrl.CreateSession(ctx)
			Expect(err).To(MatchError(controller.ErrNotSignedIn))
		})
	})

	Describe("RenameSession", func() {
		BeforeEach(func() {
			sessions.listFn = func(_ context.Context, userID string) ([]model.ChatSession, error) {
				return []model.ChatSession{
					{ID: 2, UserID: userID, Title: "b"},
					{ID: 1, UserID: userID, Title: "a"},
				}, nil
			}
			ctrl.RefreshSessions(ctx)
		})

		It("updates the title in place without reordering", func() {
			Expect(ctrl.RenameSession(ctx, 1, "X")).To(Succeed())

			list := ctrl.Sessions()
			Expect(list[0].ID).To(Equal(int64(2)))
			Expect(list[1].ID).To(Equal(int64(1)))
			Expect(list[1].Title).To(Equal("X"))
		})

		It("applies no local change when the store rejects the rename", func() {
			sessions.renameFn = func(_ context.Context, _ int64, _ string) error {
				return errors.New("update failed")
			}

			Expect(ctrl.RenameSession(ctx, 1, "X")).NotTo(Succeed())
			Expect(ctrl.Sessions()[1].Title).To(Equal("a"))
		})
	})

	Describe("DeleteSession", func() {
		BeforeEach(func() {
			sessions.listFn = func(_ context.Context, userID string) ([]model.ChatSession, error) {
				return []model.ChatSession{
					{ID: 2, UserID: userID, Title: "b"},
					{ID: 1, UserID: userID, Title: "a"},
				}, nil
			}
			ctrl.RefreshSessions(ctx)
		})

		It("removes the session from the list", func() {
			Expect(ctrl.DeleteSession(ctx, 1)).To(Succeed())

			list := ctrl.Sessions()
			Expect(list).To(HaveLen(1))
			Expect(list[0].ID).To(Equal(int64(2)))
		})

		It("clears the active selection and transcript when deleting the open session", func() {
			history.listFn = func(_ context.Context, sessionID int64) ([]model.Message, error) {
				return []model.Message{{ID: 1, SessionID: sessionID, Role: model.RoleUser, Content: "hi"}}, nil
			}
			ctrl.Select(ctx, 2)
			Expect(ctrl.Messages()).To(HaveLen(1))

			Expect(ctrl.DeleteSession(ctx, 2)).To(Succeed())

			Expect(ctrl.CurrentSessionID()).To(BeZero())
			Expect(ctrl.Messages()).To(BeEmpty())
		})

		It("keeps the selection when deleting another session", func() {
			ctrl.Select(ctx, 2)
			Expect(ctrl.DeleteSession(ctx, 1)).To(Succeed())
			Expect(ctrl.CurrentSessionID()).To(Equal(int64(2)))
		})

		It("applies no local change when the store rejects the delete", func() {
			sessions.deleteFn = func(_ context.Context, _ int64) error {
				return errors.New("delete failed")
			}

			Expect(ctrl.DeleteSession(ctx, 1)).NotTo(Succeed())
			Expect(ctrl.Sessions()).To(HaveLen(2))
		})
	})

	Describe("Select", func() {
		It("maps stored history into the displayed transcript in order", func() {
			history.listFn = func(_ context.Context, sessionID int64) ([]model.Message, error) {
				return []model.Message{
					{ID: 1, SessionID: sessionID, Role: model.RoleUser, Content: "hi"},
					{ID: 2, SessionID: sessionID, Role: model.RoleAssistant, Content: "hello!"},
				}, nil
			}

			messages := ctrl.Select(ctx, 5)

			Expect(messages).To(HaveLen(2))
			Expect(messages[0].Role).To(Equal(model.RoleUser))
			Expect(messages[0].Content).To(Equal("hi"))
			Expect(messages[1].Role).To(Equal(model.RoleAssistant))
			Expect(messages[1].Content).To(Equal("hello!"))
			Expect(ctrl.Loading()).To(BeFalse())
		})

		It("is a no-op when the session is already selected", func() {
			history.listFn = func(_ context.Context, sessionID int64) ([]model.Message, error) {
				return []model.Message{{ID: 1, SessionID: sessionID, Role: model.RoleUser, Content: "hi"}}, nil
			}

			first := ctrl.Select(ctx, 5)
			second := ctrl.Select(ctx, 5)

			Expect(second).To(Equal(first))
			Expect(history.calls.Load()).To(Equal(int64(1)))
		})

		It("converges to an empty transcript when the fetch fails", func() {
			history.listFn = func(_ context.Context, _ int64) ([]model.Message, error) {
				return nil, errors.New("store unavailable")
			}

			messages := ctrl.Select(ctx, 5)

			Expect(messages).To(BeEmpty())
			Expect(ctrl.Loading()).To(BeFalse())
			Expect(ctrl.CurrentSessionID()).To(Equal(int64(5)))
		})

		It("discards a stale fetch that resolves after the selection moved on", func() {
			release := make(chan struct{})
			history.listFn = func(_ context.Context, sessionID int64) ([]model.Message, error) {
				if sessionID == 1 {
					<-release
					return []model.Message{{ID: 1, SessionID: 1, Role: model.RoleAssistant, Content: "stale"}}, nil
				}
				return []model.Message{{ID: 2, SessionID: 2, Role: model.RoleAssistant, Content: "fresh"}}, nil
			}

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				ctrl.Select(ctx, 1)
			}()

			Eventually(ctrl.Loading).Should(BeTrue())
			ctrl.Select(ctx, 2)

			close(release)
			Eventually(done).Should(BeClosed())

			Expect(ctrl.CurrentSessionID()).To(Equal(int64(2)))
			messages := ctrl.Messages()
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Content).To(Equal("fresh"))
		})
	})

	Describe("Deselect", func() {
		It("clears the selection and empties the transcript", func() {
			history.listFn = func(_ context.Context, sessionID int64) ([]model.Message, error) {
				return []model.Message{{ID: 1, SessionID: sessionID, Role: model.RoleUser, Content: "hi"}}, nil
			}
			ctrl.Select(ctx, 5)

			ctrl.Deselect()

			Expect(ctrl.CurrentSessionID()).To(BeZero())
			Expect(ctrl.Messages()).To(BeEmpty())
		})
	})

	Describe("Send", func() {
		BeforeEach(func() {
			ctrl.Select(ctx, 5)
		})

		It("is a silent no-op when no session is selected", func() {
			ctrl.Deselect()

			appended, accepted := ctrl.Send(ctx, "Hola")

			Expect(accepted).To(BeFalse())
			Expect(appended).To(BeNil())
			Expect(ctrl.Messages()).To(BeEmpty())
			Expect(replies.calls.Load()).To(BeZero())
		})

		It("is a silent no-op for whitespace-only input", func() {
			_, accepted := ctrl.Send(ctx, "   \n\t ")

			Expect(accepted).To(BeFalse())
			Expect(ctrl.Messages()).To(BeEmpty())
			Expect(replies.calls.Load()).To(BeZero())
		})

		It("appends the trimmed user message and the resolved reply", func() {
			replies.sendFn = func(_ context.Context, sessionID int64, text string) (string, error) {
				Expect(sessionID).To(Equal(int64(5)))
				Expect(text).To(Equal("Hola"))
				return "¡Hola!", nil
			}

			appended, accepted := ctrl.Send(ctx, "  Hola  ")

			Expect(accepted).To(BeTrue())
			Expect(appended).To(HaveLen(2))
			Expect(appended[0].Role).To(Equal(model.RoleUser))
			Expect(appended[0].Content).To(Equal("Hola"))
			Expect(appended[1].Role).To(Equal(model.RoleAssistant))
			Expect(appended[1].Content).To(Equal("¡Hola!"))
			Expect(appended[1].ID).To(BeNumerically(">", appended[0].ID))
			Expect(ctrl.Sending()).To(BeFalse())
		})

		It("appends the failure notice when the round trip fails, then accepts the next send", func() {
			replies.sendFn = func(_ context.Context, _ int64, _ string) (string, error) {
				return "", &reply.TransportError{Err: errors.New("connection refused")}
			}

			appended, accepted := ctrl.Send(ctx, "Hola")

			Expect(accepted).To(BeTrue())
			Expect(appended[0].Content).To(Equal("Hola"))
			Expect(appended[1].Role).To(Equal(model.RoleAssistant))
			Expect(appended[1].Content).To(ContainSubstring("Error comunicando con el agente"))
			Expect(ctrl.Sending()).To(BeFalse())

			replies.sendFn = nil
			_, accepted = ctrl.Send(ctx, "¿Sigues ahí?")
			Expect(accepted).To(BeTrue())
			Expect(ctrl.Messages()).To(HaveLen(4))
		})

		It("rejects a send while the history fetch is still in flight", func() {
			release := make(chan struct{})
			history.listFn = func(_ context.Context, sessionID int64) ([]model.Message, error) {
				<-release
				return []model.Message{{ID: 1, SessionID: sessionID, Role: model.RoleUser, Content: "stored"}}, nil
			}

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				ctrl.Select(ctx, 6)
			}()

			Eventually(ctrl.Loading).Should(BeTrue())

			_, accepted := ctrl.Send(ctx, "Hola")
			Expect(accepted).To(BeFalse())
			Expect(replies.calls.Load()).To(BeZero())

			close(release)
			Eventually(done).Should(BeClosed())

			messages := ctrl.Messages()
			Expect(messages).To(HaveLen(1))
			Expect(messages[0].Content).To(Equal("stored"))

			appended, accepted := ctrl.Send(ctx, "Hola")
			Expect(accepted).To(BeTrue())
			Expect(appended).To(HaveLen(2))
			Expect(ctrl.Messages()).To(HaveLen(3))
		})

		It("rejects a second send while one is in flight", func() {
			release := make(chan struct{})
			replies.sendFn = func(_ context.Context, _ int64, _ string) (string, error) {
				<-release
				return "ok", nil
			}

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				_, accepted := ctrl.Send(ctx, "primero")
				Expect(accepted).To(BeTrue())
			}()

			Eventually(ctrl.Sending).Should(BeTrue())

			_, accepted := ctrl.Send(ctx, "segundo")
			Expect(accepted).To(BeFalse())

			close(release)
			Eventually(done).Should(BeClosed())
			Expect(replies.calls.Load()).To(Equal(int64(1)))
		})

		It("appends exactly two messages per accepted send", func() {
			for i := 0; i < 3; i++ {
				_, accepted := ctrl.Send(ctx, "mensaje")
				Expect(accepted).To(BeTrue())
			}
			_, accepted := ctrl.Send(ctx, "  ")
			Expect(accepted).To(BeFalse())

			Expect(ctrl.Messages()).To(HaveLen(6))
		})

		It("keeps the transcript sorted ascending by id at every point", func() {
			history.listFn = func(_ context.Context, sessionID int64) ([]model.Message, error) {
				return []model.Message{
					{ID: 10, SessionID: sessionID, Role: model.RoleUser, Content: "hi"},
					{ID: 11, SessionID: sessionID, Role: model.RoleAssistant, Content: "hello!"},
				}, nil
			}
			ctrl.Deselect()
			ctrl.Select(ctx, 5)
			Expect(ascendingByID(ctrl.Messages())).To(BeTrue())

			ctrl.Send(ctx, "uno")
			Expect(ascendingByID(ctrl.Messages())).To(BeTrue())

			ctrl.Send(ctx, "dos")
			messages := ctrl.Messages()
			Expect(ascendingByID(messages)).To(BeTrue())
			Expect(messages).To(HaveLen(6))
		})

		It("discards a reply that resolves after the session was deselected", func() {
			release := make(chan struct{})
			replies.sendFn = func(_ context.Context, _ int64, _ string) (string, error) {
				<-release
				return "tarde", nil
			}

			done := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				defer close(done)
				ctrl.Send(ctx, "Hola")
			}()

			Eventually(ctrl.Sending).Should(BeTrue())
			ctrl.Deselect()

			close(release)
			Eventually(done).Should(BeClosed())

			Expect(ctrl.Messages()).To(BeEmpty())
			Expect(ctrl.Sending()).To(BeFalse())
		})

		It("invalidates the history cache after a successful round trip", func() {
			inv := &mockInvalidator{}
			ctrl = newController(controller.WithInvalidator(inv))
			ctrl.SetUser(user)
			ctrl.Select(ctx, 5)

			ctrl.Send(ctx, "Hola")

			Expect(inv.invalidated()).To(Equal([]int64{5}))
		})
	})

	Describe("SetUser", func() {
		It("tears down all session and message state on sign-out", func() {
			sessions.listFn = func(_ context.Context, userID string) ([]model.ChatSession, error) {
				return []model.ChatSession{{ID: 1, UserID: userID, Title: "a"}}, nil
			}
			history.listFn = func(_ context.Context, sessionID int64) ([]model.Message, error) {
				return []model.Message{{ID: 1, SessionID: sessionID, Role: model.RoleUser, Content: "hi"}}, nil
			}
			ctrl.RefreshSessions(ctx)
			ctrl.Select(ctx, 1)

			ctrl.SetUser(nil)

			Expect(ctrl.User()).To(BeNil())
			Expect(ctrl.Sessions()).To(BeEmpty())
			Expect(ctrl.CurrentSessionID()).To(BeZero())
			Expect(ctrl.Messages()).To(BeEmpty())

			_, accepted := ctrl.Send(ctx, "Hola")
			Expect(accepted).To(BeFalse())
		})
	})
})
